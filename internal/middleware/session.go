package middleware

import (
	"context"
	"log/slog"

	"github.com/collabhub/gateway/internal/domain"
	"github.com/collabhub/gateway/internal/session"
	"github.com/gofiber/fiber/v3"
)

// SessionRegistry answers whether an issued session has been revoked.
type SessionRegistry interface {
	SessionRevoked(ctx context.Context, id string) (bool, error)
}

// SessionConfig holds session middleware configuration.
type SessionConfig struct {
	Codec *session.Codec

	// Registry is consulted for revocation when set; a registry outage
	// fails open so the gateway keeps serving.
	Registry SessionRegistry
}

// SessionMiddleware decodes the session cookie and injects the session
// into Fiber locals. Requests without a valid session pass through
// anonymously; route handlers decide whether that matters.
func SessionMiddleware(cfg SessionConfig) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Cookies(session.CookieName)
		if token == "" {
			return c.Next()
		}

		s, sessionID, err := cfg.Codec.Decode(token)
		if err != nil {
			return c.Next()
		}

		if cfg.Registry != nil && sessionID != "" {
			revoked, err := cfg.Registry.SessionRevoked(c.Context(), sessionID)
			if err != nil {
				slog.Error("session revocation lookup failed", "error", err)
			} else if revoked {
				return c.Next()
			}
		}

		c.Locals("session", s)
		c.Locals("session_id", sessionID)
		return c.Next()
	}
}

// GetSession extracts the decoded session from Fiber locals, nil when
// the request is anonymous.
func GetSession(c fiber.Ctx) *domain.Session {
	s, ok := c.Locals("session").(*domain.Session)
	if !ok {
		return nil
	}
	return s
}

// GetSessionID extracts the registry session id from Fiber locals.
func GetSessionID(c fiber.Ctx) string {
	id, ok := c.Locals("session_id").(string)
	if !ok {
		return ""
	}
	return id
}
