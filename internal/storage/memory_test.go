package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPutDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, NSCart, "sess-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, m.Put(ctx, NSCart, "sess-1", []byte(`[]`)))
	got, err := m.Get(ctx, NSCart, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	require.NoError(t, m.Delete(ctx, NSCart, "sess-1"))
	_, err = m.Get(ctx, NSCart, "sess-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryNamespacesAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, NSCart, "k", []byte("cart")))
	require.NoError(t, m.Put(ctx, NSFavorites, "k", []byte("fav")))

	got, err := m.Get(ctx, NSFavorites, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fav"), got)

	all, err := m.List(ctx, NSCart)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	original := []byte("value")
	require.NoError(t, m.Put(ctx, NSCart, "k", original))
	original[0] = 'X'

	got, err := m.Get(ctx, NSCart, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	got[0] = 'Y'
	again, err := m.Get(ctx, NSCart, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}
