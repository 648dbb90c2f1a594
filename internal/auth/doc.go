// Package auth implements credential verification against the configured
// identity providers.
//
// Exactly one identity path applies to a given login:
//   - Local admin: the username/password pair is compared against the
//     configured admin credential (Argon2id hash).
//   - LDAP: a simple bind with the user's DN and password, followed by a
//     group-membership gate: a user matching zero of the candidate groups
//     fails verification even though authentication succeeded.
//   - Keycloak: a resource-owner password grant against the OIDC provider,
//     followed by a client-role gate on the returned access token.
//
// # Verification result
//
// CheckAuth normalizes all three paths into a Result carrying a verified
// flag, a user-facing error message and provider-specific claims: resolved
// group names for LDAP, the provider token pair plus roles for Keycloak.
// No retries are performed at this layer; a provider outage surfaces as a
// failed verification with the upstream error logged.
//
// # Fingerprint
//
// The package also computes the client fingerprint (MD5 of IP, user agent
// and accept-language) used to bind LDAP-origin sessions and tokens to the
// browser context that created them.
package auth
