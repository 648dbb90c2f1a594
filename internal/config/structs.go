package config

import (
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	Log       logger.Log
	Webserver Webserver
	Auth      Auth
	Storage   Storage
	LDAP      LDAP
	Keycloak  Keycloak
	Groups    map[string][]string // access group name -> LDAP group DNs or roles
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain         string // domain name for the webserver
	Port           int    `validate:"required,min=1,max=65535"` // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown, seconds
	URL            string `validate:"required,url"` // base url for the webserver
	DisableRecover bool   // disable recover middleware
}

// Auth holds token issuance settings and the local admin credential.
type Auth struct {
	// TokenSecret signs locally issued access tokens. Rotating it
	// invalidates every outstanding access token at once.
	TokenSecret string `json:"-" validate:"required,min=32"`
	// AccessTokenTTL is the access token lifetime in seconds.
	AccessTokenTTL int `validate:"min=0"`
	// RefreshTokenTTL is the refresh session lifetime in seconds.
	RefreshTokenTTL int `validate:"min=0"`
	// MaxRefreshSessions caps concurrent refresh sessions per user.
	MaxRefreshSessions int `validate:"min=0"`
	// CookieOptions is appended verbatim to the refresh token Set-Cookie
	// header (e.g. "Path=/; HttpOnly; Secure; SameSite=Strict").
	CookieOptions string
	// AdminUser is the built-in administrator account name.
	AdminUser string
	// AdminPasswordHash is the Argon2id hash of the admin password.
	AdminPasswordHash string `json:"-"`
}

// Storage selects and configures the session store backend.
type Storage struct {
	Backend     string `validate:"oneof=file redis"` // file or redis
	FilePath    string // path of the JSON document for the file backend
	LockTimeout int    // file lock acquisition timeout, seconds
	RedisURL    string `validate:"omitempty,uri"` // redis://[user:pass@]host:port/db
}

// LDAP holds directory authentication settings.
type LDAP struct {
	Enabled         bool
	Host            string
	Port            int  `validate:"omitempty,min=1,max=65535"`
	UseSSL          bool // ldaps scheme
	UseTLS          bool // StartTLS over plain ldap
	SkipVerify      bool // skip certificate verification
	UserDNTemplate  string `validate:"required_if=Enabled true"` // bind DN template with a {username} placeholder
	GroupMemberAttr string // attribute compared against the user DN
	Timeout         int    // connection timeout, seconds
}

// Keycloak holds OIDC provider settings.
type Keycloak struct {
	Enabled       bool
	ProviderURL   string `validate:"required_if=Enabled true,omitempty,url"`
	ClientID      string `validate:"required_if=Enabled true"`
	ClientSecret  string `json:"-"`
	Scopes        []string
	RequiredRoles []string
}
