// Package auth implements the access-token gate in front of protected
// routes. It decodes the bearer token, consults the blacklist and exposes
// the token payload to downstream handlers via fiber Locals.
package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	coreauth "github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
)

// Locals keys populated by the gate for downstream handlers.
const (
	LocalsToken    = "access_token"   // raw access token string
	LocalsExp      = "token_exp"      // expiry as time.Time
	LocalsPayload  = "token_payload"  // *token.Claims
	LocalsProvider = "token_provider" // token.Provider
)

// Response messages of the gate.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgTokenValidation = "Token validation error"
	MsgTokenExpired    = "Token expired"
	MsgForbidden       = "Forbidden"
)

// RoleSource resolves a provider-issued access token to the caller's current
// roles at the identity provider. Group checks for provider-issued tokens go
// through the live userinfo endpoint rather than the roles baked into the
// token, so a role revoked at the provider takes effect immediately.
type RoleSource interface {
	UserInfo(ctx context.Context, accessToken string) (map[string]any, error)
	Roles(claims map[string]any) []string
}

// Gate checks access tokens on protected routes.
type Gate struct {
	codec     *token.Codec
	blacklist *token.Blacklist
	adminUser string
	roles     RoleSource
}

// NewGate creates the access-token gate. adminUser names the account
// AdminRequired accepts; roles may be nil when no identity provider is
// configured.
func NewGate(codec *token.Codec, blacklist *token.Blacklist, adminUser string, roles RoleSource) *Gate {
	return &Gate{
		codec:     codec,
		blacklist: blacklist,
		adminUser: adminUser,
		roles:     roles,
	}
}

// BearerToken extracts the access token from the Authorization header. A
// "Bearer " prefix is optional, the original API accepted the bare token.
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)

	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}

	return header
}

// TokenRequired returns a middleware rejecting requests without a valid,
// unrevoked access token. On success the raw token, its expiry and the
// decoded payload are stored in Locals.
func (g *Gate) TokenRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, MsgUnauthorized)
		}

		provider, claims, err := g.codec.Decode(c.UserContext(), raw, true)
		if err != nil {
			if errors.Is(err, token.ErrExpiredToken) {
				return fiber.NewError(fiber.StatusUnauthorized, MsgTokenExpired)
			}

			return fiber.NewError(fiber.StatusUnauthorized, MsgTokenValidation)
		}

		revoked, err := g.blacklist.Check(c.UserContext(), raw, coreauth.RequestFingerprint(c))
		if err != nil {
			log.Error().Err(err).Msg("blacklist lookup failed")

			return fiber.NewError(fiber.StatusUnauthorized, MsgTokenValidation)
		}

		if revoked {
			return fiber.NewError(fiber.StatusUnauthorized, MsgUnauthorized)
		}

		c.Locals(LocalsToken, raw)

		if claims.ExpiresAt != nil {
			c.Locals(LocalsExp, claims.ExpiresAt.Time)
		}

		c.Locals(LocalsPayload, claims)
		c.Locals(LocalsProvider, provider)

		return c.Next()
	}
}

// GroupsRequired returns a middleware passing only callers holding at least
// one of the given groups. Locally signed tokens carry their groups in the
// payload; provider-issued tokens are resolved against the provider's
// userinfo endpoint on every check. Runs after TokenRequired.
func (g *Gate) GroupsRequired(groups ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Payload(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, MsgUnauthorized)
		}

		have := claims.Groups

		if provider, _ := c.Locals(LocalsProvider).(token.Provider); provider == token.ProviderKeycloak && g.roles != nil {
			var err error

			have, err = g.liveRoles(c)
			if err != nil {
				log.Warn().Err(err).Str("user", claims.Nickname).Msg("userinfo lookup failed")

				return fiber.NewError(fiber.StatusUnauthorized, MsgTokenValidation)
			}
		}

		for _, h := range have {
			for _, want := range groups {
				if h == want {
					return c.Next()
				}
			}
		}

		return fiber.NewError(fiber.StatusForbidden, MsgForbidden)
	}
}

// liveRoles fetches the caller's current roles from the identity provider.
func (g *Gate) liveRoles(c *fiber.Ctx) ([]string, error) {
	raw, _ := c.Locals(LocalsToken).(string)

	claims, err := g.roles.UserInfo(c.UserContext(), raw)
	if err != nil {
		return nil, err
	}

	return g.roles.Roles(claims), nil
}

// AdminRequired returns a middleware passing only the built-in
// administrator account. Runs after TokenRequired.
func (g *Gate) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Payload(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, MsgUnauthorized)
		}

		if g.adminUser == "" || claims.Nickname != g.adminUser {
			return fiber.NewError(fiber.StatusForbidden, MsgForbidden)
		}

		return c.Next()
	}
}

// Payload returns the decoded token payload stored by TokenRequired, or nil.
func Payload(c *fiber.Ctx) *token.Claims {
	claims, _ := c.Locals(LocalsPayload).(*token.Claims)

	return claims
}
