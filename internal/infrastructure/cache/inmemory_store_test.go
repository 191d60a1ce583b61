package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		_, found, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k", "v1"))
		require.NoError(t, store.Set(ctx, "k", "v2"))

		v, found, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "v2", v)
		assert.Equal(t, 1, store.Size())
	})

	t.Run("delete removes the key", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "k"))
		require.NoError(t, store.Delete(ctx, "k"))

		_, found, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestInMemoryStore_TTL(t *testing.T) {
	store := NewInMemoryStore(WithTTL(10*time.Millisecond), WithCleanupInterval(5*time.Millisecond))
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v"))

	_, found, _ := store.Get(ctx, "k")
	assert.True(t, found)

	time.Sleep(30 * time.Millisecond)

	_, found, _ = store.Get(ctx, "k")
	assert.False(t, found, "expired entries are not returned")
	assert.Eventually(t, func() bool { return store.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestInMemoryStore_Close(t *testing.T) {
	store := NewInMemoryStore(WithTTL(time.Hour))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "close is idempotent")

	ctx := context.Background()
	assert.ErrorIs(t, store.Set(ctx, "k", "v"), ErrStoreClosed)
	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, "k"), ErrStoreClosed)
}
