package token

import "errors"

var (
	// ErrInvalidToken is returned when an access token is malformed, unsigned
	// or carries a wrong signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when an access token is structurally valid
	// but past its expiry. Kept distinct from ErrInvalidToken so callers can
	// answer "token expired" instead of "invalid token".
	ErrExpiredToken = errors.New("token expired")

	// ErrSessionNotFound is returned when no refresh session exists for the
	// given user and refresh token.
	ErrSessionNotFound = errors.New("refresh session not found")

	// ErrSessionExpired is returned when the refresh session exists but its
	// lifetime has lapsed. The session is deleted before this is returned.
	ErrSessionExpired = errors.New("refresh session expired")

	// ErrFingerprintMismatch is returned when the stored session fingerprint
	// does not match the requesting client's fingerprint.
	ErrFingerprintMismatch = errors.New("session fingerprint mismatch")
)
