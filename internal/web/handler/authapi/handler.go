// Package authapi implements the token endpoints: login, refresh-token,
// logout and the caller's session list.
package authapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/config"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/web/handler"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

const (
	// Path is the base path of the auth endpoints.
	Path = handler.APIBasePath + "/auth"

	// RefreshCookie carries the refresh token between logins.
	RefreshCookie = "refresh_token"

	// MsgLoggedOut confirms a completed logout.
	MsgLoggedOut = "Logged out"
)

// Service is the auth endpoints handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	deps *handler.Deps
	gate *gate.Gate
}

// Handler is the auth endpoints handler.
var Handler = Service{}

// tokenPairResponse is the login and refresh response body.
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Init initializes the auth endpoints handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.deps = deps
	s.gate = gate.NewGate(deps.Codec, deps.Blacklist, cfg.Auth.AdminUser, deps.Keycloak)

	app.Route(Path, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/refresh-token", s.Refresh)
		router.Post("/logout", s.gate.TokenRequired(), s.Logout)
		router.Get("/sessions", s.gate.TokenRequired(), s.Sessions)
	})

	return nil
}

// candidateGroups returns the union of configured LDAP group DNs tested at
// login.
func (s *Service) candidateGroups() []string {
	var dns []string
	for _, groupDNs := range s.cfg.Groups {
		dns = append(dns, groupDNs...)
	}

	return dns
}

// logicalGroups maps matched LDAP group DNs back to their configured access
// group names.
func (s *Service) logicalGroups(matchedDNs []string) []string {
	var names []string

	for name, groupDNs := range s.cfg.Groups {
		for _, dn := range groupDNs {
			for _, matched := range matchedDNs {
				if dn == matched {
					names = append(names, name)
				}
			}
		}
	}

	return names
}

// allGroups returns every configured access group name. The built-in admin
// account is a member of all of them.
func (s *Service) allGroups() []string {
	names := make([]string, 0, len(s.cfg.Groups))
	for name := range s.cfg.Groups {
		names = append(names, name)
	}

	return names
}

// setRefreshCookie sets the refresh token cookie with the configured
// options string appended verbatim.
func (s *Service) setRefreshCookie(c *fiber.Ctx, refreshToken string) {
	expires := time.Now().
		Add(time.Duration(s.cfg.Auth.RefreshTokenTTL) * time.Second).
		UTC().Format(http.TimeFormat)

	cookie := fmt.Sprintf("%s=%s; Expires=%s", RefreshCookie, refreshToken, expires)
	if opts := s.cfg.Auth.CookieOptions; opts != "" {
		cookie += "; " + opts
	}

	c.Set(fiber.HeaderSetCookie, cookie)
}
