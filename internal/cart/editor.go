package cart

import (
	"context"
	"sync"

	"github.com/iharalondon/storefront/internal/domain"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// EditorManager hands out variant editors, at most one open at a time per
// session. Opening a new editor closes the previous one, discarding its
// pending selection.
type EditorManager struct {
	mu   sync.Mutex
	cart *Store
	open *Editor
}

// Editor is an in-progress edit of one cart line's (color, size). The pending
// selection lives only here until Save; Cancel throws it away.
type Editor struct {
	mgr     *EditorManager
	key     domain.VariantKey
	pending domain.Variant
	colors  []domain.Color
	sizes   []string
	closed  bool
}

func NewEditorManager(cart *Store) *EditorManager {
	return &EditorManager{cart: cart}
}

// Open starts editing the identified line, closing any previously open editor.
func (m *EditorManager) Open(key domain.VariantKey) (*Editor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *domain.CartLine
	for _, l := range m.cart.Lines() {
		if l.Key() == key {
			line := l
			target = &line
			break
		}
	}
	if target == nil {
		return nil, &apperrors.ErrNotFound{Resource: "cart line", ID: string(key)}
	}

	if m.open != nil {
		m.open.closed = true
	}
	m.open = &Editor{
		mgr:     m,
		key:     key,
		pending: target.Variant,
		colors:  target.AvailableColors,
		sizes:   target.AvailableSizes,
	}
	return m.open, nil
}

// Colors lists the option set captured when the line was added.
func (e *Editor) Colors() []domain.Color { return e.colors }

// Sizes lists the option set captured when the line was added.
func (e *Editor) Sizes() []string { return e.sizes }

// Selection returns the pending, not-yet-saved variant.
func (e *Editor) Selection() domain.Variant { return e.pending }

// SelectColor updates the pending color. The choice is not applied until Save.
func (e *Editor) SelectColor(c *domain.Color) error {
	e.mgr.mu.Lock()
	defer e.mgr.mu.Unlock()
	if e.closed {
		return apperrors.NewValidation("editor is closed")
	}
	e.pending.Color = c
	return nil
}

// SelectSize updates the pending size. The choice is not applied until Save.
func (e *Editor) SelectSize(size string) error {
	e.mgr.mu.Lock()
	defer e.mgr.mu.Unlock()
	if e.closed {
		return apperrors.NewValidation("editor is closed")
	}
	e.pending.Size = size
	return nil
}

// Save applies the pending selection to the cart and closes the editor.
// When the selection collides with another line the two merge; the cart
// owns that rule, not the editor.
func (e *Editor) Save(ctx context.Context) error {
	e.mgr.mu.Lock()
	defer e.mgr.mu.Unlock()
	if e.closed {
		return apperrors.NewValidation("editor is closed")
	}
	if err := e.mgr.cart.EditVariant(ctx, e.key, e.pending); err != nil {
		return err
	}
	e.closed = true
	e.mgr.open = nil
	return nil
}

// Cancel closes the editor without touching the cart.
func (e *Editor) Cancel() {
	e.mgr.mu.Lock()
	defer e.mgr.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.mgr.open = nil
}
