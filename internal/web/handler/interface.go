package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/config"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
)

// OIDCClient is the part of the Keycloak provider the web layer calls:
// refreshing provider token sets, live role lookups for authorization and
// the provider's end-session URL on logout.
type OIDCClient interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, accessToken string) (map[string]any, error)
	Roles(claims map[string]any) []string
	LogoutURL(idToken, postLogoutRedirectURI string) string
}

// Deps bundles the auth subsystem services handlers operate on. Keycloak is
// nil when no identity provider is configured.
type Deps struct {
	Verifier  *auth.Verifier
	Codec     *token.Codec
	Sessions  *token.SessionManager
	Blacklist *token.Blacklist
	Keycloak  OIDCClient
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, deps *Deps) error
}
