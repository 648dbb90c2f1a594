package token

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
)

func newTestSessionManager(t *testing.T, maxSessions int) *SessionManager {
	t.Helper()

	store, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "tokens.json"), 5*time.Second)
	require.NoError(t, err)

	return NewSessionManager(store, maxSessions, time.Hour)
}

func TestSessionManagerAdd(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	ctx := context.Background()

	tok, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	sess, err := mgr.Get(ctx, "vasya", tok)
	require.NoError(t, err)
	assert.Equal(t, "vasya", sess.Nickname)
	assert.Equal(t, "fp-1", sess.Fingerprint)
	assert.Equal(t, int64(3600), sess.Expires)
}

func TestSessionManagerIdempotentRelogin(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	ctx := context.Background()

	first, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)

	second, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)

	// Same fingerprint re-login reuses the session instead of multiplying it.
	assert.Equal(t, first, second)

	sessions, err := mgr.List(ctx, "vasya")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionManagerAddWithTokenProviderTTL(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	ctx := context.Background()

	// The provider-advertised lifetime overrides the configured one.
	require.NoError(t, mgr.AddWithToken(ctx, "olga", "provider-refresh", "fp-1", 30*time.Minute))

	sess, err := mgr.Get(ctx, "olga", "provider-refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(1800), sess.Expires)

	// Zero falls back to the configured lifetime.
	require.NoError(t, mgr.AddWithToken(ctx, "olga", "another-refresh", "fp-2", 0))

	sess, err = mgr.Get(ctx, "olga", "another-refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), sess.Expires)
}

func TestSessionManagerQuotaEvictsAll(t *testing.T) {
	const maxSessions = 3

	mgr := newTestSessionManager(t, maxSessions)
	ctx := context.Background()

	for i := 0; i < maxSessions; i++ {
		_, err := mgr.Add(ctx, "vasya", fmt.Sprintf("fp-%d", i))
		require.NoError(t, err)
	}

	sessions, err := mgr.List(ctx, "vasya")
	require.NoError(t, err)
	require.Len(t, sessions, maxSessions)

	// The login over quota wipes every existing session, leaving exactly one.
	tok, err := mgr.Add(ctx, "vasya", "fp-over")
	require.NoError(t, err)

	sessions, err = mgr.List(ctx, "vasya")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "fp-over", sessions[tok].Fingerprint)
}

func TestSessionManagerValidate(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	ctx := context.Background()

	tok, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		sess, errValidate := mgr.Validate(ctx, "vasya", tok, "fp-1", true)
		require.NoError(t, errValidate)
		assert.Equal(t, "fp-1", sess.Fingerprint)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, errValidate := mgr.Validate(ctx, "vasya", "no-such-token", "fp-1", true)
		require.ErrorIs(t, errValidate, ErrSessionNotFound)
	})

	t.Run("fingerprint mismatch", func(t *testing.T) {
		_, errValidate := mgr.Validate(ctx, "vasya", tok, "fp-stolen", true)
		require.ErrorIs(t, errValidate, ErrFingerprintMismatch)
	})

	t.Run("fingerprint not bound for provider sessions", func(t *testing.T) {
		_, errValidate := mgr.Validate(ctx, "vasya", tok, "fp-other", false)
		require.NoError(t, errValidate)
	})
}

func TestSessionManagerValidateExpired(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	mgr.refreshTTL = 1 * time.Second
	ctx := context.Background()

	tok, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)

	// Backdate the stored session past its lifetime.
	sess, err := mgr.Get(ctx, "vasya", tok)
	require.NoError(t, err)
	sess.CreatedAt -= 10
	mgr.refreshTTL = time.Hour
	require.NoError(t, overwriteSession(ctx, mgr, "vasya", tok, sess))

	_, err = mgr.Validate(ctx, "vasya", tok, "fp-1", true)
	require.ErrorIs(t, err, ErrSessionExpired)

	// The expired session is gone.
	_, err = mgr.Get(ctx, "vasya", tok)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManagerDeleteLastDropsHash(t *testing.T) {
	mgr := newTestSessionManager(t, 3)
	ctx := context.Background()

	tok, err := mgr.Add(ctx, "vasya", "fp-1")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, "vasya", tok))

	sessions, err := mgr.List(ctx, "vasya")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func overwriteSession(ctx context.Context, mgr *SessionManager, nickname, tok string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return mgr.store.Set(ctx, sessionKey(nickname), map[string]string{tok: string(raw)}, mgr.refreshTTL)
}
