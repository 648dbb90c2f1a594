// Package daemon constructs the storage backend, the identity providers and
// the web service from the loaded configuration.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/config"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/web"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/web/handler"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	store      storage.Storage
	addr       string
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(d.addr)
}

// WaitShutdown blocks until the web service has drained and stopped, then
// releases the storage backend.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()

	if closer, ok := d.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage backend")
		}
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	ctx := context.Background()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage backend")
	}

	var keycloak *auth.KeycloakProvider

	if cfg.Keycloak.Enabled {
		keycloak, err = auth.NewKeycloakProvider(ctx, &auth.KeycloakConfig{
			Enabled:       true,
			ProviderURL:   cfg.Keycloak.ProviderURL,
			ClientID:      cfg.Keycloak.ClientID,
			ClientSecret:  cfg.Keycloak.ClientSecret,
			Scopes:        cfg.Keycloak.Scopes,
			RequiredRoles: cfg.Keycloak.RequiredRoles,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize keycloak provider")
		}
	}

	// a nil *KeycloakProvider must stay a nil interface inside the codec
	var providerDecoder token.ProviderDecoder
	if keycloak != nil {
		providerDecoder = keycloak
	}

	codec := token.NewCodec(
		cfg.Auth.TokenSecret,
		time.Duration(cfg.Auth.AccessTokenTTL)*time.Second,
		providerDecoder,
	)
	sessions := token.NewSessionManager(
		store,
		cfg.Auth.MaxRefreshSessions,
		time.Duration(cfg.Auth.RefreshTokenTTL)*time.Second,
	)
	blacklist := token.NewBlacklist(store, codec)

	var ldapProvider *auth.LDAPProvider

	if cfg.LDAP.Enabled {
		ldapProvider, err = auth.NewLDAPProvider(&auth.LDAPConfig{
			Enabled:         true,
			Host:            cfg.LDAP.Host,
			Port:            cfg.LDAP.Port,
			UseSSL:          cfg.LDAP.UseSSL,
			UseTLS:          cfg.LDAP.UseTLS,
			SkipVerify:      cfg.LDAP.SkipVerify,
			UserDNTemplate:  cfg.LDAP.UserDNTemplate,
			GroupMemberAttr: cfg.LDAP.GroupMemberAttr,
			Timeout:         cfg.LDAP.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ldap provider")
		}

		if err := ldapProvider.TestConnection(); err != nil {
			log.Fatal().Err(err).Msg("ldap server unreachable")
		}
	}

	var local *auth.LocalConfig

	if cfg.Auth.AdminUser != "" && cfg.Auth.AdminPasswordHash != "" {
		local = &auth.LocalConfig{
			AdminUser:         cfg.Auth.AdminUser,
			AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		}
	}

	verifier := auth.NewVerifier(local, ldapProvider, keycloak, log.Logger)

	// same nil-interface rule as for the codec's decoder
	var oidcClient handler.OIDCClient
	if keycloak != nil {
		oidcClient = keycloak
	}

	webService := web.New(cfg, &handler.Deps{
		Verifier:  verifier,
		Codec:     codec,
		Sessions:  sessions,
		Blacklist: blacklist,
		Keycloak:  oidcClient,
	})

	return &Daemon{
		webService: webService,
		store:      store,
		addr:       fmt.Sprintf(":%d", cfg.Webserver.Port),
	}
}

// newStorage builds the session store selected by the configuration.
func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return storage.NewRedisStorage(ctx, cfg.Storage.RedisURL)
	case "file":
		return storage.NewFileStorage(
			cfg.Storage.FilePath,
			time.Duration(cfg.Storage.LockTimeout)*time.Second,
		)
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownBackend, cfg.Storage.Backend)
	}
}
