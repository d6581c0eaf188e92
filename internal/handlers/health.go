package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports service health
type HealthHandler struct {
	storageMode string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storageMode string) *HealthHandler {
	return &HealthHandler{storageMode: storageMode}
}

// HandleHealth returns the service health status
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "Land Records WhatsApp Bot",
		"storage": h.storageMode,
	})
}
