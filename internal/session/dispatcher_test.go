package session

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/catalog"
	"github.com/iharalondon/storefront/internal/checkout"
	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/payment"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

var testProducts = []domain.Product{
	{
		ID:        "ring-luna",
		Name:      "Luna Ring",
		UnitPrice: decimal.NewFromInt(14500),
		Colors:    []domain.Color{{Key: "gold", Label: "Gold"}, {Key: "silver", Label: "Silver"}},
		Sizes:     []string{"6", "7", "8"},
	},
	{
		ID:        "pendant-sol",
		Name:      "Sol Pendant",
		UnitPrice: decimal.NewFromInt(22000),
		Colors:    []domain.Color{{Key: "gold", Label: "Gold"}},
	},
}

type stubSubmitter struct {
	result checkout.Result
	err    error
}

func (s *stubSubmitter) Submit(ctx context.Context, sessionID string, draft domain.CheckoutDraft) (checkout.Result, error) {
	return s.result, s.err
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *stubSubmitter) {
	t.Helper()
	sub := &stubSubmitter{result: checkout.Result{OrderID: "ord-1", Reference: "IH123456ABC"}}
	d := NewDispatcher(
		NewRegistry(storage.NewMemory(), zap.NewNop()),
		catalog.NewFromProducts(testProducts),
		payment.NewSelector(),
		sub,
		decimal.NewFromInt(500),
		zap.NewNop(),
	)
	return d, sub
}

func TestDispatchAddAndChangeQuantity(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "7"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "7"})
	require.NoError(t, err)

	s := d.Session(ctx, "sess-1")
	require.Len(t, s.Cart().Lines(), 1)
	assert.Equal(t, 2, s.Cart().Lines()[0].Quantity)

	key := string(s.Cart().Lines()[0].Key())
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdChangeQuantity, LineKey: key, Delta: -2})
	require.NoError(t, err)
	assert.True(t, s.Cart().IsEmpty())
}

func TestDispatchAddItemUnknownProduct(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "sess-1", Command{Type: CmdAddItem, ProductID: "nope"})

	var nf *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestDispatchAddItemUnknownColor(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "sess-1", Command{Type: CmdAddItem, ProductID: "ring-luna", ColorKey: "rose", Size: "7"})

	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestDispatchEditVariantMerges(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "7"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "ring-luna", ColorKey: "silver", Size: "7"})
	require.NoError(t, err)

	goldKey := "ring-luna|gold|7"
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdEditVariant, LineKey: goldKey, ColorKey: "silver", Size: "7"})
	require.NoError(t, err)

	lines := d.Session(ctx, "sess-1").Cart().Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestDispatchToggleFavorite(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	out, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdToggleFavorite, ProductID: "pendant-sol", ColorKey: "gold"})
	require.NoError(t, err)
	require.NotNil(t, out.Favorited)
	assert.True(t, *out.Favorited)

	out, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdToggleFavorite, ProductID: "pendant-sol"})
	require.NoError(t, err)
	assert.False(t, *out.Favorited)
}

func TestDispatchCheckoutRequiresOpen(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "sess-1", Command{Type: CmdAdvance})

	var verr *apperrors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "checkout", verr.First)
}

func TestDispatchOpenCheckoutEmptyCart(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "sess-1", Command{Type: CmdOpenCheckout})

	var empty *apperrors.ErrEmptyCart
	assert.ErrorAs(t, err, &empty)
}

func TestDispatchFullCheckout(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "pendant-sol", ColorKey: "gold"})
	require.NoError(t, err)

	out, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdOpenCheckout})
	require.NoError(t, err)
	assert.Equal(t, "shipping", out.Step)

	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdSetShipping, Shipping: &domain.ShippingInfo{Method: domain.ShippingPickup}})
	require.NoError(t, err)
	out, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAdvance})
	require.NoError(t, err)
	assert.Equal(t, "contact", out.Step)

	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdSetContact, Contact: &domain.ContactInfo{Name: "Ana", Email: "ana@example.com", Phone: "+54 11 5555-0101"}})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAdvance})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdSetPayment, Payment: &payment.Input{Method: domain.PaymentCash}})
	require.NoError(t, err)
	out, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAdvance})
	require.NoError(t, err)
	assert.Equal(t, "summary", out.Step)

	out, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAdvance})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, "IH123456ABC", out.Result.Reference)
	assert.True(t, d.Session(ctx, "sess-1").Cart().IsEmpty())

	// The flow is closed after confirmation.
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdAdvance})
	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestDispatchBackAtFirstStep(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "pendant-sol"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "sess-1", Command{Type: CmdOpenCheckout})
	require.NoError(t, err)

	out, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdBack})
	require.NoError(t, err)
	assert.Equal(t, "shipping", out.Step)
}

func TestRegistryRehydratesCart(t *testing.T) {
	blobs := storage.NewMemory()
	ctx := context.Background()
	d := NewDispatcher(
		NewRegistry(blobs, zap.NewNop()),
		catalog.NewFromProducts(testProducts),
		payment.NewSelector(),
		&stubSubmitter{},
		decimal.NewFromInt(500),
		zap.NewNop(),
	)
	_, err := d.Dispatch(ctx, "sess-1", Command{Type: CmdAddItem, ProductID: "pendant-sol", ColorKey: "gold"})
	require.NoError(t, err)

	// A fresh registry over the same blobs sees the persisted cart.
	d2 := NewDispatcher(
		NewRegistry(blobs, zap.NewNop()),
		catalog.NewFromProducts(testProducts),
		payment.NewSelector(),
		&stubSubmitter{},
		decimal.NewFromInt(500),
		zap.NewNop(),
	)
	assert.Len(t, d2.Session(ctx, "sess-1").Cart().Lines(), 1)
}
