package auth

import (
	"crypto/md5" //nolint:gosec // client identifier, not a password hash
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Fingerprint returns the MD5 hex digest of the client IP, user agent and
// accept-language triple. It binds LDAP-origin tokens and sessions to the
// browser context that created them.
func Fingerprint(ip, userAgent, acceptLanguage string) string {
	sum := md5.Sum([]byte(strings.Join([]string{ip, userAgent, acceptLanguage}, "|"))) //nolint:gosec // see above

	return hex.EncodeToString(sum[:])
}

// RequestFingerprint computes the fingerprint of the requesting client.
func RequestFingerprint(c *fiber.Ctx) string {
	return Fingerprint(c.IP(), c.Get(fiber.HeaderUserAgent), c.Get(fiber.HeaderAcceptLanguage))
}

// CheckFingerprint reports whether the requesting client's fingerprint
// equals the given one.
func CheckFingerprint(c *fiber.Ctx, fingerprint string) bool {
	return fingerprint == RequestFingerprint(c)
}
