package handler

import (
	"strconv"

	"github.com/collabhub/gateway/internal/adapter/store"
	"github.com/gofiber/fiber/v3"
)

// AuditHandler exposes the proxy latency audit trail.
type AuditHandler struct {
	store *store.PostgresStore
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(store *store.PostgresStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(app *fiber.App) {
	audit := app.Group("/api/audit")
	audit.Get("/recent", h.Recent)
}

// Recent returns the most recent proxied-request records.
func (h *AuditHandler) Recent(c fiber.Ctx) error {
	limitStr := c.Query("limit", "100")
	limit, _ := strconv.Atoi(limitStr)

	entries, err := h.store.ListAudit(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}
