package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
)

func newTestBlacklist(t *testing.T) (*miniredis.Miniredis, *Blacklist, *Codec) {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := storage.NewRedisStorage(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	codec := NewCodec(testSecret, time.Minute, nil)

	return mr, NewBlacklist(store, codec), codec
}

func TestBlacklistMonotonic(t *testing.T) {
	mr, bl, codec := newTestBlacklist(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Minute)
	raw := mustEncode(t, codec, &Claims{
		Nickname:    "vasya",
		Fingerprint: "fp-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	require.NoError(t, bl.Add(ctx, raw, expiresAt.Unix()))

	// Once added, every check reports revoked until the TTL lapses.
	for i := 0; i < 3; i++ {
		revoked, err := bl.Check(ctx, raw, "fp-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	}

	mr.FastForward(2 * time.Minute)

	entry, err := bl.Entry(ctx, raw)
	require.NoError(t, err)
	assert.Empty(t, entry)
}

func TestBlacklistCleanTokenPasses(t *testing.T) {
	_, bl, codec := newTestBlacklist(t)
	ctx := context.Background()

	raw := mustEncode(t, codec, &Claims{Nickname: "vasya", Fingerprint: "fp-1"})

	revoked, err := bl.Check(ctx, raw, "fp-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistLazyRevocationOnFingerprintMismatch(t *testing.T) {
	_, bl, codec := newTestBlacklist(t)
	ctx := context.Background()

	raw := mustEncode(t, codec, &Claims{Nickname: "vasya", Fingerprint: "fp-1"})

	// A token presented from the wrong client context is revoked on the spot.
	revoked, err := bl.Check(ctx, raw, "fp-stolen")
	require.NoError(t, err)
	assert.True(t, revoked)

	entry, err := bl.Entry(ctx, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, entry)

	// Even the legitimate client is rejected afterwards.
	revoked, err = bl.Check(ctx, raw, "fp-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
