package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the namespace/key pair has no value
var ErrKeyNotFound = errors.New("storage: key not found")

// Namespaces of the persisted key space. Session-scoped namespaces are keyed
// by session ID; record namespaces by record ID or email.
const (
	NSCart         = "cart"
	NSFavorites    = "favorites"
	NSSizes        = "sizes"
	NSTheme        = "theme"
	NSPendingOrder = "pending_order"
	NSOrders       = "orders"
	NSSubscribers  = "subscribers"
	NSMetrics      = "metrics"
	NSContact      = "contact"
	NSIdempotency  = "idempotency"
)

// Store is the key-value blob store every durable concern persists through:
// the cart's local storage, recorded orders, newsletter subscribers. Values
// are opaque JSON blobs owned by the caller.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
	Close() error
}
