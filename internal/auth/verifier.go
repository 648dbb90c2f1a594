package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Result is the normalized outcome of a credential check, regardless of
// which identity backend produced it.
type Result struct {
	// Verified is true when the credentials were accepted.
	Verified bool
	// Error carries a short human-readable reason when Verified is false.
	Error string
	// Admin is true for the built-in administrator account.
	Admin bool
	// Nickname is the authenticated user's name.
	Nickname string
	// Groups are the LDAP groups the user was confirmed a member of.
	Groups []string
	// Claims carries backend-specific extras (Keycloak token set, roles).
	Claims map[string]any
}

func failed(reason string) *Result {
	return &Result{Verified: false, Error: reason}
}

// ParseBasicAuth extracts the username and password from an HTTP Basic
// Authorization header value.
func ParseBasicAuth(header string) (string, string, error) {
	const prefix = "Basic "

	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", ErrMalformedHeader
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", ErrMalformedHeader
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", ErrMalformedHeader
	}

	return username, password, nil
}

// Verifier checks user credentials against the configured identity
// backends. The local administrator account is always consulted first, then
// LDAP, then Keycloak. Backends that are nil are skipped.
type Verifier struct {
	local    *LocalConfig
	ldap     *LDAPProvider
	keycloak *KeycloakProvider
	logger   zerolog.Logger
}

// NewVerifier creates a verifier over the given backends. Any backend may be
// nil if it is not configured.
func NewVerifier(local *LocalConfig, ldap *LDAPProvider, keycloak *KeycloakProvider, logger zerolog.Logger) *Verifier {
	return &Verifier{
		local:    local,
		ldap:     ldap,
		keycloak: keycloak,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// CheckAuth verifies an HTTP Basic Authorization header against the
// configured backends. ldapGroups is the set of candidate groups to test
// membership in for the LDAP path.
func (v *Verifier) CheckAuth(ctx context.Context, header string, ldapGroups []string) *Result {
	username, password, err := ParseBasicAuth(header)
	if err != nil {
		return failed(msgTokenValidation)
	}

	if v.local != nil && v.local.verifyAdmin(username, password) {
		v.logger.Info().Str("user", username).Msg("local admin authenticated")

		return &Result{
			Verified: true,
			Admin:    true,
			Nickname: username,
			Groups:   ldapGroups,
		}
	}

	if v.ldap != nil {
		return v.checkLDAP(username, password, ldapGroups)
	}

	if v.keycloak != nil {
		return v.checkKeycloak(ctx, username, password)
	}

	return failed(msgAuthFailed)
}

func (v *Verifier) checkLDAP(username, password string, candidateGroups []string) *Result {
	groups, err := v.ldap.Authenticate(username, password, candidateGroups)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			v.logger.Warn().Str("user", username).Msg("LDAP bind rejected")

			return failed(msgAuthFailed)
		}

		v.logger.Error().Err(err).Str("user", username).Msg("LDAP lookup failed")

		return failed(msgLDAPFailed)
	}

	if len(groups) == 0 {
		return failed(msgNoGroup)
	}

	return &Result{
		Verified: true,
		Nickname: username,
		Groups:   groups,
	}
}

func (v *Verifier) checkKeycloak(ctx context.Context, username, password string) *Result {
	tokenSet, err := v.keycloak.Token(ctx, username, password)
	if err != nil {
		v.logger.Warn().Err(err).Str("user", username).Msg("Keycloak token request failed")

		return failed(msgKeycloakFailed)
	}

	_, claims, err := v.keycloak.Decode(ctx, tokenSet.AccessToken, true)
	if err != nil {
		v.logger.Error().Err(err).Str("user", username).Msg("Keycloak token verification failed")

		return failed(msgKeycloakFailed)
	}

	roles := v.keycloak.Roles(claims)
	if len(roles) == 0 {
		return failed(msgNoRole)
	}

	if required := v.keycloak.config.RequiredRoles; len(required) > 0 && !intersects(roles, required) {
		return failed(msgNoRole)
	}

	nickname, _ := claims["preferred_username"].(string)
	if nickname == "" {
		nickname = username
	}

	refreshExpires, _ := tokenSet.Extra("refresh_expires_in").(float64)

	return &Result{
		Verified: true,
		Nickname: nickname,
		Groups:   roles,
		Claims: map[string]any{
			"access_token":       tokenSet.AccessToken,
			"refresh_token":      tokenSet.RefreshToken,
			"refresh_expires_in": int64(refreshExpires),
			"roles":              roles,
		},
	}
}

func intersects(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}

	return false
}
