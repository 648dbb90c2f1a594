package token

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
)

// refreshSessionKeyFmt is the per-user hash holding all of the user's refresh
// sessions, keyed by refresh-token string.
const refreshSessionKeyFmt = "user.%s.refresh_tokens"

// Session is one server-side refresh session. Sessions are replaced, never
// field-updated.
type Session struct {
	Nickname    string `json:"nickname"`
	Fingerprint string `json:"fingerprint"`
	// Expires is the session lifetime in seconds counted from CreatedAt.
	Expires   int64 `json:"expires"`
	CreatedAt int64 `json:"created_at"`
}

func (s Session) expired(now time.Time) bool {
	return s.CreatedAt+s.Expires <= now.Unix()
}

// SessionManager creates, enumerates and evicts a user's refresh sessions,
// enforcing the maximum concurrent session count.
type SessionManager struct {
	store       storage.Storage
	maxSessions int
	refreshTTL  time.Duration
}

// NewSessionManager creates a manager storing sessions in store, allowing at
// most maxSessions concurrent sessions per user, each living refreshTTL.
func NewSessionManager(store storage.Storage, maxSessions int, refreshTTL time.Duration) *SessionManager {
	return &SessionManager{
		store:       store,
		maxSessions: maxSessions,
		refreshTTL:  refreshTTL,
	}
}

func sessionKey(nickname string) string {
	return fmt.Sprintf(refreshSessionKeyFmt, nickname)
}

// Add registers a refresh session for nickname bound to the given client
// fingerprint and returns the refresh-token string.
//
// If the user already holds a session with the same fingerprint, that
// session's token is returned unchanged, so re-login from the same client
// does not multiply sessions. If the session count has reached the quota,
// every existing session is evicted before the new one is inserted, a full
// reset, not an LRU evict-one.
//
// Two concurrent logins for the same user can both observe an under-quota
// count and both insert; the failure mode is an extra logout later, never
// extra sessions beyond quota by more than the race window. Kept as a
// documented race rather than a per-user write lock.
func (m *SessionManager) Add(ctx context.Context, nickname, fingerprint string) (string, error) {
	key := sessionKey(nickname)

	sessions, err := m.List(ctx, nickname)
	if err != nil {
		return "", err
	}

	if len(sessions) >= m.maxSessions {
		log.Warn().Str("user", nickname).Int("sessions", len(sessions)).
			Msg("refresh session quota exceeded, evicting all sessions")

		if err := m.store.Delete(ctx, key); err != nil {
			return "", err
		}

		sessions = nil
	}

	for tok, sess := range sessions {
		if sess.Fingerprint == fingerprint {
			return tok, nil
		}
	}

	tok := uuid.NewString()

	return tok, m.put(ctx, nickname, tok, fingerprint, m.refreshTTL)
}

// AddWithToken registers a session under a caller-provided refresh token.
// Used for Keycloak sessions, whose refresh token is issued by the provider.
// A positive ttl overrides the configured session lifetime with the one the
// provider advertised for its refresh token.
func (m *SessionManager) AddWithToken(ctx context.Context, nickname, refreshToken, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.refreshTTL
	}

	sessions, err := m.List(ctx, nickname)
	if err != nil {
		return err
	}

	if len(sessions) >= m.maxSessions {
		log.Warn().Str("user", nickname).Int("sessions", len(sessions)).
			Msg("refresh session quota exceeded, evicting all sessions")

		if err := m.store.Delete(ctx, sessionKey(nickname)); err != nil {
			return err
		}
	}

	return m.put(ctx, nickname, refreshToken, fingerprint, ttl)
}

func (m *SessionManager) put(ctx context.Context, nickname, refreshToken, fingerprint string, ttl time.Duration) error {
	sess := Session{
		Nickname:    nickname,
		Fingerprint: fingerprint,
		Expires:     int64(ttl / time.Second),
		CreatedAt:   time.Now().Unix(),
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh session: %w", err)
	}

	return m.store.Set(ctx, sessionKey(nickname), map[string]string{refreshToken: string(raw)}, ttl)
}

// Get looks up one refresh session. Returns ErrSessionNotFound if absent.
func (m *SessionManager) Get(ctx context.Context, nickname, refreshToken string) (*Session, error) {
	raw, err := m.store.HGet(ctx, sessionKey(nickname), refreshToken)
	if err != nil {
		return nil, err
	}

	if raw == "" {
		return nil, ErrSessionNotFound
	}

	sess := new(Session)
	if err := json.Unmarshal([]byte(raw), sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refresh session: %w", err)
	}

	return sess, nil
}

// List enumerates the user's refresh sessions keyed by refresh token.
func (m *SessionManager) List(ctx context.Context, nickname string) (map[string]Session, error) {
	raw, err := m.store.HGetAll(ctx, sessionKey(nickname))
	if err != nil {
		return nil, err
	}

	sessions := make(map[string]Session, len(raw))

	for tok, val := range raw {
		var sess Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal refresh session: %w", err)
		}

		sessions[tok] = sess
	}

	return sessions, nil
}

// Delete removes one refresh session, and the whole per-user hash if that was
// the last one.
func (m *SessionManager) Delete(ctx context.Context, nickname, refreshToken string) error {
	key := sessionKey(nickname)

	if err := m.store.HDelete(ctx, key, refreshToken); err != nil {
		return err
	}

	remaining, err := m.store.HGetAll(ctx, key)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		return m.store.Delete(ctx, key)
	}

	return nil
}

// Validate checks a presented refresh session against the store. For
// LDAP-origin sessions (bindFingerprint) the stored fingerprint must match
// the requesting client's one. An expired
// session is deleted before ErrSessionExpired is returned.
func (m *SessionManager) Validate(
	ctx context.Context,
	nickname, refreshToken, fingerprint string,
	bindFingerprint bool,
) (*Session, error) {
	sess, err := m.Get(ctx, nickname, refreshToken)
	if err != nil {
		return nil, err
	}

	if bindFingerprint && sess.Fingerprint != fingerprint {
		return nil, ErrFingerprintMismatch
	}

	if sess.expired(time.Now()) {
		if err := m.Delete(ctx, nickname, refreshToken); err != nil {
			log.Error().Err(err).Str("user", nickname).Msg("failed to delete expired refresh session")
		}

		return nil, ErrSessionExpired
	}

	return sess, nil
}
