package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/cart"
	"github.com/iharalondon/storefront/internal/checkout"
	"github.com/iharalondon/storefront/internal/storage"
)

// Session is one buyer's server-side state: their cart, the variant editor
// manager, and the checkout flow when one is open. Commands against a session
// run serialized under its mutex.
type Session struct {
	mu      sync.Mutex
	id      string
	cart    *cart.Store
	editors *cart.EditorManager
	flow    *checkout.Flow
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Cart exposes the session cart for read-only views.
func (s *Session) Cart() *cart.Store { return s.cart }

// Registry creates and caches sessions, rehydrating carts from the blob
// store on first access.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	blobs    storage.Store
	logger   *zap.Logger
}

func NewRegistry(blobs storage.Store, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: map[string]*Session{},
		blobs:    blobs,
		logger:   logger,
	}
}

// Get returns the session for sid, creating it on first access.
func (r *Registry) Get(ctx context.Context, sid string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sid]; ok {
		return s
	}
	c := cart.NewStore(ctx, sid, r.blobs, r.logger)
	s := &Session{
		id:      sid,
		cart:    c,
		editors: cart.NewEditorManager(c),
	}
	r.sessions[sid] = s
	return s
}
