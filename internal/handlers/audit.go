package handlers

import (
	"strconv"

	"thomas-backend/internal/middleware"
	"thomas-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuditHandler struct {
	audit *services.Audit
}

func NewAuditHandler(audit *services.Audit) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns the session user's recent audit entries, newest first.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	entries, err := h.audit.Recent(middleware.UserID(c), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load audit log",
		})
	}

	return c.JSON(fiber.Map{"entries": entries})
}
