package authapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	coreauth "github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

// Login authenticates the Basic Authorization header and returns a fresh
// token pair. The refresh token is additionally set as a cookie.
func (s *Service) Login(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	result := s.deps.Verifier.CheckAuth(c.UserContext(), header, s.candidateGroups())
	if !result.Verified {
		log.Warn().Str("reason", result.Error).Msg("login rejected")

		return fiber.NewError(fiber.StatusUnauthorized, result.Error)
	}

	fingerprint := coreauth.RequestFingerprint(c)

	accessToken, refreshToken, err := s.issueTokenPair(c, result, fingerprint)
	if err != nil {
		log.Error().Err(err).Str("user", result.Nickname).Msg("failed to establish session")

		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	s.setRefreshCookie(c, refreshToken)

	return c.JSON(tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// issueTokenPair turns a verified credential check into an access/refresh
// pair. Keycloak logins reuse the provider's token set; local and LDAP
// logins get a locally signed access token and a server-generated refresh
// session.
func (s *Service) issueTokenPair(c *fiber.Ctx, result *coreauth.Result, fingerprint string) (string, string, error) {
	if providerAccess, ok := result.Claims["access_token"].(string); ok && providerAccess != "" {
		providerRefresh, _ := result.Claims["refresh_token"].(string)

		// The provider's refresh token dies on the provider's schedule, not
		// on the locally configured one.
		var ttl time.Duration
		if secs, ok := result.Claims["refresh_expires_in"].(int64); ok && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}

		err := s.deps.Sessions.AddWithToken(c.UserContext(), result.Nickname, providerRefresh, fingerprint, ttl)
		if err != nil {
			return "", "", err
		}

		return providerAccess, providerRefresh, nil
	}

	refreshToken, err := s.deps.Sessions.Add(c.UserContext(), result.Nickname, fingerprint)
	if err != nil {
		return "", "", err
	}

	groups := s.logicalGroups(result.Groups)
	if result.Admin {
		groups = s.allGroups()
	}

	accessToken, err := s.deps.Codec.Encode(&token.Claims{
		Nickname:    result.Nickname,
		Fingerprint: fingerprint,
		Groups:      groups,
	})
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
