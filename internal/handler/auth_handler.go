package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/collabhub/gateway/internal/auth"
	"github.com/collabhub/gateway/internal/domain"
	"github.com/collabhub/gateway/internal/middleware"
	"github.com/collabhub/gateway/internal/session"
	"github.com/gofiber/fiber/v3"
)

// SessionRegistry records issued sessions so sign-out can revoke them.
type SessionRegistry interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time) (*domain.SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error
}

// AuthConfig holds auth handler configuration.
type AuthConfig struct {
	CookieMaxAge time.Duration
	CookieSecure bool

	// RefreshEnabled wires the dormant token-refresh path into the
	// session endpoint's expiry check. Off by default.
	RefreshEnabled bool
}

// AuthHandler handles the session lifecycle endpoints.
type AuthHandler struct {
	exchanger *auth.Exchanger
	codec     *session.Codec
	registry  SessionRegistry
	cfg       AuthConfig
}

// NewAuthHandler creates an auth handler. registry may be nil, which
// disables the durable session registry.
func NewAuthHandler(exchanger *auth.Exchanger, codec *session.Codec, registry SessionRegistry, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{exchanger: exchanger, codec: codec, registry: registry, cfg: cfg}
}

// Register sets up auth routes.
func (h *AuthHandler) Register(app *fiber.App) {
	grp := app.Group("/api/auth")
	grp.Post("/login", h.Login)
	grp.Post("/logout", h.Logout)
	grp.Get("/session", h.Session)
}

// Login exchanges credentials (or a guest token) for a session cookie.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var creds auth.Credentials
	if err := c.Bind().JSON(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result := h.exchanger.Login(c.Context(), creds)
	if result == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	sessionID := ""
	if h.registry != nil {
		record, err := h.registry.CreateSession(c.Context(), result.User.ID, time.Now().Add(h.cfg.CookieMaxAge))
		if err != nil {
			slog.Error("failed to record session", "error", err)
		} else {
			sessionID = record.ID
		}
	}

	token, err := h.codec.Encode(result.Session, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create session",
		})
	}
	h.setCookie(c, token)

	slog.Info("user authenticated", "user_id", result.User.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": result.User,
	})
}

// Logout revokes the session and clears the cookie unconditionally.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if h.registry != nil {
		if id := middleware.GetSessionID(c); id != "" {
			if err := h.registry.RevokeSession(c.Context(), id); err != nil {
				slog.Error("failed to revoke session", "error", err)
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{"ok": true})
}

// Session reports the current session. Each successful read re-issues
// the cookie, which is what makes the lifetime sliding. When refresh is
// enabled and the access token has expired, the refresh exchange runs
// here; on refresh failure the session is kept, marked with its error.
func (h *AuthHandler) Session(c fiber.Ctx) error {
	s := middleware.GetSession(c)
	if s == nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}

	if h.cfg.RefreshEnabled && s.Expired(time.Now()) {
		s = h.exchanger.Refresh(c.Context(), s)
	}

	token, err := h.codec.Encode(s, middleware.GetSessionID(c))
	if err == nil {
		h.setCookie(c, token)
	}

	resp := fiber.Map{"authenticated": s.Authenticated()}
	if s.Error != "" {
		resp["error"] = string(s.Error)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) setCookie(c fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.CookieMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: "Lax",
	})
}
