// Package token implements the access-token codec, the refresh-session
// manager and the access-token blacklist.
//
// Access tokens come from one of two providers: sessions created against LDAP
// or the local admin credential carry a locally HMAC-signed token, while
// Keycloak sessions carry the provider's own token. The provider tag lives in
// the token header, not the payload, so it can be read before signature
// verification to select the verification path.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider identifies the identity source of an access token.
type Provider string

const (
	// ProviderLDAP marks locally HMAC-signed tokens (LDAP or local admin origin).
	ProviderLDAP Provider = "ldap"
	// ProviderKeycloak marks tokens issued and verified by the OIDC provider.
	ProviderKeycloak Provider = "keycloak"
)

// headerProvider is the JWT header field carrying the provider tag.
const headerProvider = "prv"

// signingMethod is the HMAC algorithm for locally issued tokens.
var signingMethod = jwt.SigningMethodHS256

// Claims is the access-token payload. LDAP-origin tokens always carry a
// fingerprint; Keycloak-origin tokens never do, since Keycloak session
// validity is delegated to the provider.
type Claims struct {
	Nickname    string   `json:"nickname"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	// Nonce guarantees two tokens issued within the same second still differ.
	Nonce int64 `json:"nonce"`

	jwt.RegisteredClaims
}

// ProviderDecoder verifies provider-issued access tokens. Implemented by the
// Keycloak provider; nil when Keycloak authentication is disabled. When
// verifyExpiry is false the signature is still checked but an expired token
// is accepted, which the refresh path depends on.
type ProviderDecoder interface {
	DecodeAccessToken(ctx context.Context, raw string, verifyExpiry bool) (*Claims, error)
}

// Codec encodes and decodes signed access tokens.
type Codec struct {
	secret    []byte
	accessTTL time.Duration
	keycloak  ProviderDecoder
	nonce     atomic.Int64
}

// NewCodec creates a codec signing with secret and stamping new tokens with
// accessTTL. keycloak may be nil if only local/LDAP tokens are in use.
func NewCodec(secret string, accessTTL time.Duration, keycloak ProviderDecoder) *Codec {
	c := &Codec{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		keycloak:  keycloak,
	}

	// Seed from the clock so the counter stays monotonic across restarts.
	c.nonce.Store(time.Now().UnixNano())

	return c
}

// Encode produces a compact signed token tagged with the LDAP provider. A
// fresh nonce is sampled on every call; expiry defaults to now + accessTTL
// unless the claims already carry one.
func (c *Codec) Encode(claims *Claims) (string, error) {
	claims.Nonce = c.nonce.Add(1)

	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(c.accessTTL))
	}

	tok := jwt.NewWithClaims(signingMethod, claims)
	tok.Header[headerProvider] = string(ProviderLDAP)

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// UpdateAccessToken re-stamps the expiry and nonce of an existing payload and
// re-encodes it. Used by the refresh path for LDAP-origin sessions only.
func (c *Codec) UpdateAccessToken(claims *Claims) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(c.accessTTL))

	return c.Encode(claims)
}

// Decode verifies a raw access token and returns its provider and payload.
// The provider tag is read from the header before any signature check to
// route verification: locally signed tokens are verified against the shared
// secret, everything else is delegated to the identity provider.
func (c *Codec) Decode(ctx context.Context, raw string, verifyExpiry bool) (Provider, *Claims, error) {
	if c.peekProvider(raw) == ProviderLDAP {
		claims, err := c.decodeLocal(raw, verifyExpiry)

		return ProviderLDAP, claims, err
	}

	if c.keycloak == nil {
		return ProviderKeycloak, nil, ErrInvalidToken
	}

	claims, err := c.keycloak.DecodeAccessToken(ctx, raw, verifyExpiry)
	if err != nil {
		return ProviderKeycloak, nil, err
	}

	return ProviderKeycloak, claims, nil
}

// peekProvider reads the header's provider tag without verifying the
// signature. Tokens without the tag are treated as provider-issued.
func (c *Codec) peekProvider(raw string) Provider {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err != nil {
		// Let the local path produce a proper ErrInvalidToken.
		return ProviderLDAP
	}

	if tag, ok := tok.Header[headerProvider].(string); ok && tag == string(ProviderLDAP) {
		return ProviderLDAP
	}

	return ProviderKeycloak
}

func (c *Codec) decodeLocal(raw string, verifyExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()})}
	if !verifyExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := new(Claims)

	_, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
