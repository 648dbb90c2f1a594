// Package admin implements administrator-only inspection endpoints.
package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/config"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/web/handler"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

// Path is the base path of the admin endpoints.
const Path = handler.APIBasePath + "/admin"

// Service is the admin endpoints handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	deps *handler.Deps
	gate *gate.Gate
}

// Handler is the admin endpoints handler.
var Handler = Service{}

// Init initializes the admin endpoints handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.deps = deps
	s.gate = gate.NewGate(deps.Codec, deps.Blacklist, cfg.Auth.AdminUser, deps.Keycloak)

	app.Route(Path, func(router fiber.Router) {
		router.Get("/blacklist/:token", s.gate.TokenRequired(), s.gate.AdminRequired(), s.BlacklistEntry)
	})

	return nil
}

// BlacklistEntry reports whether a given access token is revoked, with the
// revocation record when present.
func (s *Service) BlacklistEntry(c *fiber.Ctx) error {
	raw := c.Params("token")

	entry, err := s.deps.Blacklist.Entry(c.UserContext(), raw)
	if err != nil {
		log.Error().Err(err).Msg("blacklist lookup failed")

		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"blacklisted": len(entry) > 0,
		"entry":       entry,
	})
}
