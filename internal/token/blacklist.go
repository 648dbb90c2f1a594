package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
)

// blacklistKeyFmt is the revocation key derived from the raw token string.
const blacklistKeyFmt = "blacklisted.access.token.%s"

// minBlacklistTTL keeps an entry for a token that is about to expire anyway
// alive long enough to be observed.
const minBlacklistTTL = 1 * time.Second

// Blacklist is the access-token revocation list. An entry's TTL equals the
// token's remaining lifetime: after that the token fails expiry checks on its
// own, so the entry is safe to drop.
type Blacklist struct {
	store storage.Storage
	codec *Codec
}

// NewBlacklist creates a blacklist persisting to store. The codec is needed
// because checking is a potential write: an LDAP-origin token presented with
// a wrong fingerprint is blacklisted on the spot.
func NewBlacklist(store storage.Storage, codec *Codec) *Blacklist {
	return &Blacklist{store: store, codec: codec}
}

func blacklistKey(raw string) string {
	return fmt.Sprintf(blacklistKeyFmt, raw)
}

// Add revokes an access token until expiresAt (unix seconds).
func (b *Blacklist) Add(ctx context.Context, raw string, expiresAt int64) error {
	ttl := time.Until(time.Unix(expiresAt, 0))
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}

	fields := map[string]string{
		"expires_at": strconv.FormatInt(expiresAt, 10),
	}

	return b.store.Set(ctx, blacklistKey(raw), fields, ttl)
}

// Entry retrieves the revocation record for a token, empty if not revoked.
func (b *Blacklist) Entry(ctx context.Context, raw string) (map[string]string, error) {
	return b.store.HGetAll(ctx, blacklistKey(raw))
}

// Check reports whether an access token must be rejected. An existing entry
// answers immediately. Otherwise the token is decoded and, for LDAP-origin
// tokens only, the embedded fingerprint is compared against the requesting
// client's: a mismatch blacklists the token on the spot (lazy revocation on
// detected misuse) and reports true. Keycloak-origin tokens without an entry
// are the provider's responsibility and report false.
func (b *Blacklist) Check(ctx context.Context, raw, currentFingerprint string) (bool, error) {
	entry, err := b.Entry(ctx, raw)
	if err != nil {
		return false, err
	}

	if len(entry) > 0 {
		return true, nil
	}

	provider, claims, err := b.codec.Decode(ctx, raw, true)
	if err != nil {
		return false, err
	}

	if provider != ProviderLDAP {
		return false, nil
	}

	if claims.Fingerprint != currentFingerprint {
		log.Warn().Str("user", claims.Nickname).Msg("access token fingerprint mismatch, revoking token")

		if err := b.Add(ctx, raw, claims.ExpiresAt.Unix()); err != nil {
			return true, err
		}

		return true, nil
	}

	return false, nil
}
