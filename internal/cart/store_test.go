package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

var (
	gold   = domain.Color{Key: "gold", Label: "Gold"}
	silver = domain.Color{Key: "silver", Label: "Silver"}

	ring = domain.Product{
		ID:        "ring-luna",
		Name:      "Luna Ring",
		UnitPrice: decimal.NewFromInt(14500),
		Colors:    []domain.Color{gold, silver},
		Sizes:     []string{"6", "7", "8"},
	}
	pendant = domain.Product{
		ID:        "pendant-sol",
		Name:      "Sol Pendant",
		UnitPrice: decimal.NewFromInt(22000),
		Colors:    []domain.Color{gold},
	}
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(context.Background(), "sess-1", storage.NewMemory(), zap.NewNop())
}

func TestAddItemMergesSameVariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	assert.Equal(t, 2, line.Quantity)
	assert.Len(t, s.Lines(), 1)
	assert.Equal(t, 2, s.ItemCount())
}

func TestAddItemDistinctVariantsMakeDistinctLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, ring, domain.Variant{Color: &silver, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "8"})
	require.NoError(t, err)

	assert.Len(t, s.Lines(), 3)
}

func TestAddItemRequiresSizeWhenProductHasSizes(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddItem(context.Background(), ring, domain.Variant{Color: &gold})

	var verr *apperrors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "size", verr.First)
	assert.Empty(t, s.Lines())
}

func TestAddItemSizelessProductNeedsNoSize(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddItem(context.Background(), pendant, domain.Variant{Color: &gold})

	require.NoError(t, err)
	assert.Len(t, s.Lines(), 1)
}

func TestChangeQuantityToZeroRemovesLine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	s.ChangeQuantity(ctx, line.Key(), -1)

	assert.Empty(t, s.Lines())
	assert.True(t, s.IsEmpty())
}

func TestChangeQuantityUnknownLineIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	s.ChangeQuantity(ctx, domain.VariantKey("nope|gold|7"), 3)

	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 1, s.Lines()[0].Quantity)
}

func TestRemoveLineMissingIsNoOp(t *testing.T) {
	s := newTestStore(t)

	s.RemoveLine(context.Background(), domain.VariantKey("nope|gold|7"))

	assert.Empty(t, s.Lines())
}

func TestEditVariantSameKeyIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	err = s.EditVariant(ctx, line.Key(), domain.Variant{Color: &gold, Size: "7"})

	require.NoError(t, err)
	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 1, s.Lines()[0].Quantity)
}

func TestEditVariantCollisionMergesIntoTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	b, err := s.AddItem(ctx, ring, domain.Variant{Color: &silver, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, ring, domain.Variant{Color: &silver, Size: "7"})
	require.NoError(t, err)

	// Move the gold line onto silver/7, which already holds quantity 2.
	err = s.EditVariant(ctx, a.Key(), domain.Variant{Color: &silver, Size: "7"})
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, b.Key(), lines[0].Key())
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 3, s.ItemCount())
}

func TestEditVariantNoCollisionUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	err = s.EditVariant(ctx, line.Key(), domain.Variant{Color: &silver, Size: "8"})
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "silver", lines[0].Variant.Color.Key)
	assert.Equal(t, "8", lines[0].Variant.Size)
}

func TestEditVariantUnknownLine(t *testing.T) {
	s := newTestStore(t)

	err := s.EditVariant(context.Background(), domain.VariantKey("nope|gold|7"), domain.Variant{Color: &gold, Size: "7"})

	var nf *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestToggleFavoriteAddsThenRemoves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added := s.ToggleFavorite(ctx, ring, &gold, "7")
	assert.True(t, added)
	require.Len(t, s.Favorites(), 1)
	assert.Equal(t, "7", s.Favorites()[0].SelectedSize)

	added = s.ToggleFavorite(ctx, ring, &silver, "8")
	assert.False(t, added)
	assert.Empty(t, s.Favorites())
}

func TestFavoritesIndependentFromCart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.ToggleFavorite(ctx, ring, &gold, "7")
	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	s.Clear(ctx)

	assert.Empty(t, s.Lines())
	assert.Len(t, s.Favorites(), 1)
}

func TestSubtotalRecomputed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, pendant, domain.Variant{Color: &gold})
	require.NoError(t, err)

	assert.True(t, s.Subtotal().Equal(decimal.NewFromInt(51000)))

	s.ChangeQuantity(ctx, domain.NewVariantKey(ring.ID, domain.Variant{Color: &gold, Size: "7"}), -1)
	assert.True(t, s.Subtotal().Equal(decimal.NewFromInt(36500)))
}

func TestPersistenceRoundTrip(t *testing.T) {
	blobs := storage.NewMemory()
	ctx := context.Background()
	logger := zap.NewNop()

	s := NewStore(ctx, "sess-1", blobs, logger)
	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	s.ToggleFavorite(ctx, pendant, &gold, "")
	s.SetTheme(ctx, "dark")

	// A new store against the same blobs rehydrates the full state.
	reloaded := NewStore(ctx, "sess-1", blobs, logger)
	require.Len(t, reloaded.Lines(), 1)
	assert.Equal(t, 1, reloaded.Lines()[0].Quantity)
	assert.Len(t, reloaded.Favorites(), 1)
	assert.Equal(t, "dark", reloaded.Theme())

	size, ok := reloaded.LastSize(ring.ID)
	require.True(t, ok)
	assert.Equal(t, "7", size)
}

func TestMalformedPersistedStateHydratesEmpty(t *testing.T) {
	blobs := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, storage.NSCart, "sess-1", []byte("{not json")))

	s := NewStore(ctx, "sess-1", blobs, zap.NewNop())

	assert.Empty(t, s.Lines())
	assert.True(t, s.IsEmpty())
}

func TestPersistFailureDoesNotFailMutation(t *testing.T) {
	blobs := &failingStore{Store: storage.NewMemory()}
	ctx := context.Background()

	s := NewStore(ctx, "sess-1", blobs, zap.NewNop())
	_, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})

	require.NoError(t, err)
	assert.Len(t, s.Lines(), 1)
}

type failingStore struct {
	storage.Store
}

func (f *failingStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	return assert.AnError
}
