package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/internal/pkg/database"
	"github.com/aethex-labs/aethex/internal/pkg/entitlements"
)

// HandleAdminListWebhookEvents returns the most recent billing webhook events,
// newest first. Payloads are included so operators can inspect failures.
func HandleAdminListWebhookEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var events []models.BillingWebhookEvent
	err := database.GetDB().
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load webhook events",
		})
	}
	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}

type adminSettingsRequest struct {
	SiteTitle           *string `json:"site_title"`
	SiteDescription     *string `json:"site_description"`
	MaintenanceMode     *bool   `json:"maintenance_mode"`
	RegistrationEnabled *bool   `json:"registration_enabled"`
}

// HandleAdminGetSettings returns the current settings snapshot.
func HandleAdminGetSettings(c *fiber.Ctx) error {
	return c.JSON(models.CurrentAppSettings(database.GetDB()))
}

// HandleAdminUpdateSettings applies a partial settings update. Only the
// fields present in the request body change; the rest keep their value.
func HandleAdminUpdateSettings(c *fiber.Ctx) error {
	var req adminSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	db := database.GetDB()
	current := models.CurrentAppSettings(db)
	updated := *current

	if req.SiteTitle != nil {
		updated.SiteTitle = strings.TrimSpace(*req.SiteTitle)
	}
	if req.SiteDescription != nil {
		updated.SiteDescription = strings.TrimSpace(*req.SiteDescription)
	}
	if req.MaintenanceMode != nil {
		updated.MaintenanceMode = *req.MaintenanceMode
	}
	if req.RegistrationEnabled != nil {
		updated.RegistrationEnabled = *req.RegistrationEnabled
	}

	if err := models.SaveSettings(db, &updated); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(updated)
}

type planMappingRequest struct {
	StripePriceID string `json:"stripe_price_id" validate:"required,min=1,max=191"`
	InternalTier  string `json:"internal_tier" validate:"required"`
	IsActive      *bool  `json:"is_active"`
}

// HandleAdminUpsertPlanMapping creates or updates the mapping from a Stripe
// price ID to an internal tier. Webhook tier resolution picks these up on
// the next event, no restart needed.
func HandleAdminUpsertPlanMapping(c *fiber.Ctx) error {
	var req planMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Validation failed: " + err.Error(),
		})
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	mapping := models.BillingPlanMapping{
		Provider:      models.BillingProviderStripe,
		StripePriceID: strings.TrimSpace(req.StripePriceID),
		InternalTier:  string(entitlements.Normalize(req.InternalTier)),
		IsActive:      active,
	}

	err := database.GetDB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "stripe_price_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"internal_tier", "is_active", "updated_at",
		}),
	}).Create(&mapping).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save plan mapping",
		})
	}
	return c.JSON(mapping)
}

// HandleAdminListPlanMappings lists all configured plan mappings.
func HandleAdminListPlanMappings(c *fiber.Ctx) error {
	var mappings []models.BillingPlanMapping
	err := database.GetDB().Order("provider, stripe_price_id").Find(&mappings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load plan mappings",
		})
	}
	return c.JSON(fiber.Map{"mappings": mappings, "count": len(mappings)})
}
