package auth

import "errors"

var (
	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrKeycloakDisabled is returned when Keycloak authentication is disabled via configuration.
	ErrKeycloakDisabled = errors.New("keycloak authentication is disabled")

	// ErrMalformedHeader is returned when the Basic authorization header cannot be parsed.
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrInvalidCredentials is returned when a backend rejects the supplied
	// username and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User-visible verification failure messages. Credential failures
// intentionally avoid echoing provider-internal detail; infrastructure
// failures are logged with the wrapped upstream error instead.
const (
	msgAuthFailed = "authorization failed"
	// msgTokenValidation distinguishes a malformed Authorization header from
	// a credential check that ran and failed.
	msgTokenValidation = "Token validation error"
	msgLDAPFailed      = "LDAP authentication failed"
	msgKeycloakFailed  = "Keycloak authentication failed"
	msgNoGroup         = "user is not a member of any required group"
	msgNoRole          = "user has none of the required roles"
)
