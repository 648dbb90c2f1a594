package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStorage) {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := NewRedisStorage(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func TestRedisStorageSetMergesFields(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"a": "1"}, time.Minute))
	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"b": "2"}, time.Minute))

	fields, err := store.HGetAll(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, fields)
}

func TestRedisStorageTTL(t *testing.T) {
	mr, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"a": "1"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	fields, err := store.HGetAll(ctx, "sessions")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestRedisStorageNoTTL(t *testing.T) {
	mr, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"a": "1"}, 0))

	mr.FastForward(24 * time.Hour)

	val, err := store.HGet(ctx, "sessions", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestRedisStorageMissingKey(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()

	fields, err := store.HGetAll(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, fields)

	val, err := store.HGet(ctx, "nope", "field")
	require.NoError(t, err)
	assert.Empty(t, val)

	val, err = store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestRedisStorageHDelete(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"a": "1", "b": "2"}, 0))
	require.NoError(t, store.HDelete(ctx, "sessions", "a"))

	fields, err := store.HGetAll(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "2"}, fields)
}

func TestRedisStorageDelete(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions", map[string]string{"a": "1"}, 0))
	require.NoError(t, store.Delete(ctx, "sessions"))

	fields, err := store.HGetAll(ctx, "sessions")
	require.NoError(t, err)
	assert.Empty(t, fields)
}
