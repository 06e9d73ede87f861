package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iharalondon/storefront/internal/domain"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

func TestEditorSaveAppliesSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	mgr := NewEditorManager(s)
	ed, err := mgr.Open(line.Key())
	require.NoError(t, err)

	assert.Equal(t, ring.Colors, ed.Colors())
	assert.Equal(t, ring.Sizes, ed.Sizes())

	require.NoError(t, ed.SelectColor(&silver))
	require.NoError(t, ed.SelectSize("8"))
	require.NoError(t, ed.Save(ctx))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "silver", lines[0].Variant.Color.Key)
	assert.Equal(t, "8", lines[0].Variant.Size)
}

func TestEditorCancelDiscardsSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)

	mgr := NewEditorManager(s)
	ed, err := mgr.Open(line.Key())
	require.NoError(t, err)
	require.NoError(t, ed.SelectSize("8"))
	ed.Cancel()

	assert.Equal(t, "7", s.Lines()[0].Variant.Size)

	err = ed.Save(ctx)
	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestEditorSaveMergesOnCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, ring, domain.Variant{Color: &silver, Size: "7"})
	require.NoError(t, err)

	mgr := NewEditorManager(s)
	ed, err := mgr.Open(a.Key())
	require.NoError(t, err)
	require.NoError(t, ed.SelectColor(&silver))
	require.NoError(t, ed.Save(ctx))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestOpeningSecondEditorClosesFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddItem(ctx, ring, domain.Variant{Color: &gold, Size: "7"})
	require.NoError(t, err)
	b, err := s.AddItem(ctx, ring, domain.Variant{Color: &silver, Size: "8"})
	require.NoError(t, err)

	mgr := NewEditorManager(s)
	first, err := mgr.Open(a.Key())
	require.NoError(t, err)
	_, err = mgr.Open(b.Key())
	require.NoError(t, err)

	err = first.SelectSize("6")
	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestOpenUnknownLine(t *testing.T) {
	s := newTestStore(t)

	_, err := NewEditorManager(s).Open(domain.VariantKey("nope|gold|7"))

	var nf *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
