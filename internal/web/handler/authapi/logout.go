package authapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

// Logout blacklists the presented access token for its remaining lifetime
// and drops the refresh session named by the cookie, if any. For
// provider-issued tokens the response additionally carries the provider's
// end-session URL so the client can terminate the upstream session too.
// Runs behind the token gate.
func (s *Service) Logout(c *fiber.Ctx) error {
	raw, _ := c.Locals(gate.LocalsToken).(string)
	claims := gate.Payload(c)

	if raw == "" || claims == nil || claims.ExpiresAt == nil {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	if err := s.deps.Blacklist.Add(c.UserContext(), raw, claims.ExpiresAt.Unix()); err != nil {
		log.Error().Err(err).Str("user", claims.Nickname).Msg("failed to blacklist access token")

		return fiber.ErrInternalServerError
	}

	if refreshToken := c.Cookies(RefreshCookie); refreshToken != "" {
		if err := s.deps.Sessions.Delete(c.UserContext(), claims.Nickname, refreshToken); err != nil {
			log.Error().Err(err).Str("user", claims.Nickname).Msg("failed to delete refresh session")
		}
	}

	response := fiber.Map{"message": MsgLoggedOut}

	provider, _ := c.Locals(gate.LocalsProvider).(token.Provider)
	if provider == token.ProviderKeycloak && s.deps.Keycloak != nil {
		if logoutURL := s.deps.Keycloak.LogoutURL(raw, s.cfg.Webserver.URL); logoutURL != "" {
			response["logout_url"] = logoutURL
		}
	}

	return c.JSON(response)
}
