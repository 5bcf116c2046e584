package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisIncrementWithTTL(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ratelimit:api:ip:1.2.3.4:100", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Greater(t, ttl, 50*time.Second)

	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:api:ip:1.2.3.4:100", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// The window expiry is set once; later increments must not extend it.
	mr.FastForward(30 * time.Second)
	_, ttl, err = store.IncrementWithTTL(ctx, "ratelimit:api:ip:1.2.3.4:100", time.Minute)
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 30*time.Second)

	mr.FastForward(31 * time.Second)
	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:api:ip:1.2.3.4:100", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRedisSetGetDelete(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))
	value, found, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), value)

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "greeting", []byte("again"), 0))
	require.NoError(t, store.Delete(ctx, "greeting"))
	_, found, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisKeysAreNamespaced(t *testing.T) {
	store, mr := newMiniredisStore(t)

	require.NoError(t, store.Set(context.Background(), "plain", []byte("x"), 0))
	assert.True(t, mr.Exists("tide:plain"))
	assert.False(t, mr.Exists("plain"))
}

func TestRedisErrorsSurfaceToCaller(t *testing.T) {
	store, mr := newMiniredisStore(t)
	mr.Close()

	_, _, err := store.IncrementWithTTL(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
