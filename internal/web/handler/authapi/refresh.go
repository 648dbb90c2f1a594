package authapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	coreauth "github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

// Refresh exchanges a possibly expired access token plus the refresh cookie
// for a new access token. The refresh token stays the same for its whole
// session lifetime. The old access token is blacklisted so a stolen copy
// dies with the rotation.
func (s *Service) Refresh(c *fiber.Ctx) error {
	raw := gate.BearerToken(c)
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	refreshToken := c.Cookies(RefreshCookie)
	if refreshToken == "" {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	// Signature must hold, expiry may not: refreshing an expired access
	// token is the normal case.
	provider, claims, err := s.deps.Codec.Decode(c.UserContext(), raw, false)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgTokenValidation)
	}

	entry, err := s.deps.Blacklist.Entry(c.UserContext(), raw)
	if err != nil {
		log.Error().Err(err).Msg("blacklist lookup failed")

		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgTokenValidation)
	}

	if len(entry) > 0 {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	fingerprint := coreauth.RequestFingerprint(c)
	bindFingerprint := provider == token.ProviderLDAP

	_, err = s.deps.Sessions.Validate(c.UserContext(), claims.Nickname, refreshToken, fingerprint, bindFingerprint)
	if err != nil {
		log.Warn().Err(err).Str("user", claims.Nickname).Msg("refresh session rejected")

		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	// The old access token is dead from here on, even if it had life left.
	if claims.ExpiresAt != nil {
		if err := s.deps.Blacklist.Add(c.UserContext(), raw, claims.ExpiresAt.Unix()); err != nil {
			log.Error().Err(err).Msg("failed to blacklist rotated access token")

			return fiber.ErrInternalServerError
		}
	}

	accessToken, err := s.newAccessToken(c, provider, claims, refreshToken)
	if err != nil {
		log.Error().Err(err).Str("user", claims.Nickname).Msg("failed to issue access token")

		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	return c.JSON(tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (s *Service) newAccessToken(c *fiber.Ctx, provider token.Provider, claims *token.Claims, refreshToken string) (string, error) {
	if provider != token.ProviderKeycloak {
		return s.deps.Codec.UpdateAccessToken(claims)
	}

	if s.deps.Keycloak == nil {
		return "", errors.New("keycloak provider not configured")
	}

	tokenSet, err := s.deps.Keycloak.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		return "", err
	}

	return tokenSet.AccessToken, nil
}
