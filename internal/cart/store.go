package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// Store is the single source of truth for one session's cart and favorites.
// It enforces the line-identity invariant (at most one line per
// (product, color, size) key) and writes state back to the blob store after
// every mutation. Persistence is best-effort: a failing write never fails the
// in-memory operation, and a missing or malformed persisted value hydrates as
// an empty cart.
type Store struct {
	mu        sync.Mutex
	sessionID string
	lines     []domain.CartLine
	favorites []domain.FavoriteEntry
	sizes     map[string]string // product ID -> last selected size
	theme     string
	blobs     storage.Store
	logger    *zap.Logger
}

// NewStore constructs a session cart, rehydrating any persisted state.
func NewStore(ctx context.Context, sessionID string, blobs storage.Store, logger *zap.Logger) *Store {
	s := &Store{
		sessionID: sessionID,
		sizes:     map[string]string{},
		blobs:     blobs,
		logger:    logger,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	s.loadInto(ctx, storage.NSCart, &s.lines)
	s.loadInto(ctx, storage.NSFavorites, &s.favorites)
	s.loadInto(ctx, storage.NSSizes, &s.sizes)

	var theme string
	s.loadInto(ctx, storage.NSTheme, &theme)
	s.theme = theme
	if s.sizes == nil {
		s.sizes = map[string]string{}
	}
}

func (s *Store) loadInto(ctx context.Context, namespace string, dst interface{}) {
	raw, err := s.blobs.Get(ctx, namespace, s.sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to load persisted state", zap.String("namespace", namespace), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Malformed persisted value hydrates as empty state, never an error.
		s.logger.Warn("discarding malformed persisted state", zap.String("namespace", namespace), zap.Error(err))
	}
}

// persist writes cart, favorites and size memory back to the blob store.
// Callers hold the mutex. Failures are logged and swallowed.
func (s *Store) persist(ctx context.Context) {
	s.persistOne(ctx, storage.NSCart, s.lines)
	s.persistOne(ctx, storage.NSFavorites, s.favorites)
	s.persistOne(ctx, storage.NSSizes, s.sizes)
}

func (s *Store) persistOne(ctx context.Context, namespace string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to marshal state", zap.String("namespace", namespace), zap.Error(err))
		return
	}
	if err := s.blobs.Put(ctx, namespace, s.sessionID, raw); err != nil {
		s.logger.Warn("failed to persist state", zap.String("namespace", namespace), zap.Error(err))
	}
}

// AddItem adds one unit of product in the given variant. When a line with the
// same identity key already exists its quantity is incremented instead of
// appending a duplicate line. Products with a size set require a size.
func (s *Store) AddItem(ctx context.Context, product domain.Product, variant domain.Variant) (domain.CartLine, error) {
	if product.HasSizes() && variant.Size == "" {
		return domain.CartLine{}, apperrors.NewValidation("size required", "size", "required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NewVariantKey(product.ID, variant)
	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity++
			s.persist(ctx)
			return s.lines[i], nil
		}
	}

	line := domain.CartLine{
		ProductID:       product.ID,
		Name:            product.Name,
		Image:           product.Image,
		Variant:         variant,
		Quantity:        1,
		UnitPrice:       product.UnitPrice,
		AvailableColors: product.Colors,
		AvailableSizes:  product.Sizes,
		AddedAt:         time.Now().UTC(),
	}
	s.lines = append(s.lines, line)
	if variant.Size != "" {
		s.sizes[product.ID] = variant.Size
	}
	s.persist(ctx)
	return line, nil
}

// ChangeQuantity applies delta to the identified line. A resulting quantity of
// zero or less removes the line; this is the documented way the "-" control
// deletes a line, so it is not an error. Unknown lines are a no-op.
func (s *Store) ChangeQuantity(ctx context.Context, key domain.VariantKey, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity += delta
			if s.lines[i].Quantity <= 0 {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
			}
			s.persist(ctx)
			return
		}
	}
}

// RemoveLine removes the identified line unconditionally. Removing a line that
// does not exist is a no-op, not an error.
func (s *Store) RemoveLine(ctx context.Context, key domain.VariantKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// EditVariant reassigns a line's (color, size). If the new key equals the
// current key nothing happens. If another line already carries the new key the
// two merge: the target absorbs the source's quantity and the source is
// removed. This is the only path by which two lines collapse into one.
func (s *Store) EditVariant(ctx context.Context, key domain.VariantKey, newVariant domain.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := -1
	for i := range s.lines {
		if s.lines[i].Key() == key {
			src = i
			break
		}
	}
	if src == -1 {
		return &apperrors.ErrNotFound{Resource: "cart line", ID: string(key)}
	}

	newKey := domain.NewVariantKey(s.lines[src].ProductID, newVariant)
	if newKey == key {
		return nil
	}

	for i := range s.lines {
		if i != src && s.lines[i].Key() == newKey {
			s.lines[i].Quantity += s.lines[src].Quantity
			s.lines = append(s.lines[:src], s.lines[src+1:]...)
			s.persist(ctx)
			return nil
		}
	}

	s.lines[src].Variant = newVariant
	if newVariant.Size != "" {
		s.sizes[s.lines[src].ProductID] = newVariant.Size
	}
	s.persist(ctx)
	return nil
}

// ToggleFavorite adds the product to favorites, or removes it if already
// present. The entry captures a snapshot of the currently selected color and
// size; it is not live-linked to the product. Returns true when added.
func (s *Store) ToggleFavorite(ctx context.Context, product domain.Product, selectedColor *domain.Color, selectedSize string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.favorites {
		if s.favorites[i].ProductID == product.ID {
			s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
			s.persist(ctx)
			return false
		}
	}

	s.favorites = append(s.favorites, domain.FavoriteEntry{
		ProductID:     product.ID,
		Name:          product.Name,
		UnitPrice:     product.UnitPrice,
		Image:         product.Image,
		Colors:        product.Colors,
		Sizes:         product.Sizes,
		SelectedColor: selectedColor,
		SelectedSize:  selectedSize,
		AddedAt:       time.Now().UTC(),
	})
	s.persist(ctx)
	return true
}

// Lines returns a copy of the cart lines.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Favorites returns a copy of the favorite entries.
func (s *Store) Favorites() []domain.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FavoriteEntry, len(s.favorites))
	copy(out, s.favorites)
	return out
}

// Subtotal recomputes the cart subtotal from the lines. Derived, never cached.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, l := range s.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// ItemCount is the total quantity across all lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Clear empties the cart. Favorites and remembered sizes survive.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persist(ctx)
}

// LastSize returns the size remembered for a product, if any.
func (s *Store) LastSize(productID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.sizes[productID]
	return size, ok
}

// RememberSize records the size last picked for a product.
func (s *Store) RememberSize(ctx context.Context, productID, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes[productID] = size
	s.persistOne(ctx, storage.NSSizes, s.sizes)
}

// Theme returns the persisted display theme.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme persists the display theme.
func (s *Store) SetTheme(ctx context.Context, theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	s.persistOne(ctx, storage.NSTheme, s.theme)
}
