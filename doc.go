// Package main provides the entry point for the repository metadata API
// daemon. It starts a Fiber based web server exposing the authentication
// endpoints: login against local, LDAP or Keycloak identity backends, token
// refresh with rotation, logout with revocation, and session inspection.
// Refresh sessions and the access-token blacklist persist in Redis or a
// lock-protected JSON file.
package main
