package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/app/repository"
	"github.com/aethex-labs/aethex/internal/pkg/database"
	"github.com/aethex-labs/aethex/internal/pkg/entitlements"
	"github.com/aethex-labs/aethex/internal/pkg/linking"
	"github.com/aethex-labs/aethex/internal/pkg/usercontext"
)

// HandleAccountInfo returns the authenticated user's profile, current tier
// with the limits it entitles, Discord link state, and API key metadata.
func HandleAccountInfo(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	db := database.GetDB()

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(uc.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load account",
		})
	}

	profile, err := models.GetOrCreateBillingProfile(db, user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load billing profile",
		})
	}
	tier := entitlements.Normalize(profile.Tier)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	link, err := linking.NewServiceFromDB(db).Status(ctx, user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load link status",
		})
	}

	settings, err := models.GetOrCreateUserSettings(db, user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load settings",
		})
	}

	resp := fiber.Map{
		"id":    user.UUID,
		"name":  user.Name,
		"email": user.Email,
		"tier":  tier,
		"entitlements": fiber.Map{
			"max_projects":     entitlements.MaxProjects(tier),
			"max_upload_bytes": entitlements.MaxUploadBytes(tier),
		},
		"subscription_status": profile.SubscriptionStatus,
		"discord": fiber.Map{
			"linked": link != nil,
		},
		"api_key": fiber.Map{
			"active":       settings.HasActiveAPIKey(),
			"prefix":       settings.APIKeyPrefix,
			"created_at":   formatTimePtr(settings.APIKeyCreatedAt),
			"last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		},
	}
	if link != nil {
		resp["discord"] = fiber.Map{
			"linked":    true,
			"id":        link.DiscordUserID,
			"username":  link.DiscordUsername,
			"linked_at": link.LinkedAt.Format(time.RFC3339),
		}
	}
	return c.JSON(resp)
}

// HandleIssueAPIKey mints a fresh API key for the session user. The raw key
// is returned exactly once; only the hash is stored.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	db := database.GetDB()

	settings, err := models.GetOrCreateUserSettings(db, uc.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load settings",
		})
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate API key",
		})
	}
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save API key",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    rawKey,
		"prefix":     settings.APIKeyPrefix,
		"created_at": formatTimePtr(settings.APIKeyCreatedAt),
	})
}

// HandleRevokeAPIKey invalidates the stored key immediately.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	db := database.GetDB()

	settings, err := models.GetOrCreateUserSettings(db, uc.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load settings",
		})
	}
	if !settings.HasActiveAPIKey() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active API key",
		})
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke API key",
		})
	}
	return c.JSON(fiber.Map{"revoked": true})
}
