package authapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	coreauth "github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	gate "github.com/GoAltRepo-API/GoAltRepo-API/internal/web/middleware/auth"
)

// sessionInfo describes one active refresh session of the caller. The
// refresh token itself is not echoed back.
type sessionInfo struct {
	Fingerprint string `json:"fingerprint"`
	Current     bool   `json:"current"`
	Expires     int64  `json:"expires"`
	CreatedAt   int64  `json:"created_at"`
}

// Sessions lists the caller's active refresh sessions. Runs behind the
// token gate.
func (s *Service) Sessions(c *fiber.Ctx) error {
	claims := gate.Payload(c)
	if claims == nil {
		return fiber.NewError(fiber.StatusUnauthorized, gate.MsgUnauthorized)
	}

	sessions, err := s.deps.Sessions.List(c.UserContext(), claims.Nickname)
	if err != nil {
		log.Error().Err(err).Str("user", claims.Nickname).Msg("failed to list refresh sessions")

		return fiber.ErrInternalServerError
	}

	fingerprint := coreauth.RequestFingerprint(c)
	infos := make([]sessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		infos = append(infos, sessionInfo{
			Fingerprint: sess.Fingerprint,
			Current:     sess.Fingerprint == fingerprint,
			Expires:     sess.Expires,
			CreatedAt:   sess.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"sessions": infos})
}
