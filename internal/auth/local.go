package auth

import (
	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// LocalConfig holds the single locally managed admin credential.
type LocalConfig struct {
	// AdminUser is the username of the configured admin account.
	AdminUser string
	// AdminPasswordHash is the Argon2id hash of the admin password.
	AdminPasswordHash string
}

// HashPassword hashes a plaintext password using the Argon2id algorithm with
// default parameters. Used by deployment tooling to produce the configured
// admin hash.
func HashPassword(password string) string {
	hashed, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashed
}

// verifyAdmin reports whether the pair matches the configured admin
// credential. Succeeds only for the exact configured admin username.
func (c *LocalConfig) verifyAdmin(username, password string) bool {
	if username != c.AdminUser {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, c.AdminPasswordHash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
