package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/internal/pkg/database"
	"github.com/aethex-labs/aethex/internal/pkg/usercontext"
)

// MaintenanceMiddleware returns 503 for non-admin traffic while the
// maintenance flag is set. The flag is read through the TTL-cached settings
// snapshot, not per-request from the database. Billing webhooks bypass the
// gate so the payment processor never sees retryable failures during
// maintenance windows.
func MaintenanceMiddleware(c *fiber.Ctx) error {
	db := database.GetDB()
	if db == nil {
		return c.Next()
	}

	settings := models.CurrentAppSettings(db)
	if settings == nil || !settings.MaintenanceMode {
		return c.Next()
	}

	if c.Path() == "/api/v1/billing/webhook" {
		return c.Next()
	}
	if usercontext.IsAdmin(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "maintenance",
		"message": "The platform is temporarily down for maintenance",
	})
}
