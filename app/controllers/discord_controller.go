package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/app/repository"
	"github.com/aethex-labs/aethex/internal/pkg/database"
	"github.com/aethex-labs/aethex/internal/pkg/discord"
	"github.com/aethex-labs/aethex/internal/pkg/linking"
	"github.com/aethex-labs/aethex/internal/pkg/usercontext"
)

type discordVerifyRequest struct {
	VerificationCode string `json:"verification_code" validate:"required,min=4,max=32"`
	UserID           string `json:"user_id"`
}

type issueLinkCodeRequest struct {
	DiscordUserID   string `json:"discord_user_id" validate:"required,max=32"`
	DiscordUsername string `json:"discord_username" validate:"max=100"`
}

// HandleDiscordVerify consumes a bot-issued verification code and links the
// caller's account to the Discord identity the code was minted for.
func HandleDiscordVerify(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req discordVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "verification_code is required"})
	}

	// Clients may echo their account id; it must match the session identity.
	if req.UserID != "" {
		repo := repository.GetGlobalFactory().GetUserRepository()
		if u, err := repo.GetByID(userCtx.UserID); err != nil || u.UUID != req.UserID {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "user_id does not match the authenticated session"})
		}
	}

	svc := linking.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	link, err := svc.ConsumeCode(ctx, req.VerificationCode, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, linking.ErrInvalidOrExpiredCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid or expired verification code"})
		case errors.Is(err, linking.ErrIdentityAlreadyLinked):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "This Discord account is already linked to a different user"})
		case errors.Is(err, linking.ErrTooManyAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "message": "Too many attempts, try again later"})
		}
		var storageErr *linking.StorageError
		if errors.As(err, &storageErr) {
			log.Printf("discord verify: storage failure at %s for user %d: %v", storageErr.Step, userCtx.UserID, storageErr.Err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Verification failed",
				"step":    storageErr.Step,
				"error":   storageErr.Err.Error(),
			})
		}
		log.Printf("discord verify failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Verification failed", "step": "", "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Discord account linked",
		"discord_user": fiber.Map{
			"id":       link.DiscordUserID,
			"username": link.DiscordUsername,
		},
		"linked_at": link.LinkedAt.UTC().Format(time.RFC3339),
	})
}

// HandleDiscordStatus reports whether the caller has a linked Discord account.
func HandleDiscordStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	svc := linking.NewServiceFromDB(database.GetDB())
	link, err := svc.Status(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("discord status lookup failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load link status"})
	}
	if link == nil {
		return c.JSON(fiber.Map{"linked": false})
	}
	return c.JSON(fiber.Map{
		"linked": true,
		"discord_user": fiber.Map{
			"id":       link.DiscordUserID,
			"username": link.DiscordUsername,
		},
		"linked_at": link.LinkedAt.UTC().Format(time.RFC3339),
	})
}

// HandleDiscordUnlink removes the caller's Discord link.
func HandleDiscordUnlink(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	svc := linking.NewServiceFromDB(database.GetDB())
	removed, err := svc.Unlink(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("discord unlink failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unlink failed"})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No Discord account is linked"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleBotIssueLinkCode mints a verification code on behalf of the Discord
// bot. Authenticated via the bot token middleware; the bot relays the code to
// the user in a DM.
func HandleBotIssueLinkCode(c *fiber.Ctx) error {
	var req issueLinkCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "discord_user_id is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Fill the username snapshot from the Discord API when the bot didn't
	// send one. Best-effort; the link works without it.
	username := req.DiscordUsername
	if username == "" {
		if user, err := discord.NewClientFromEnv().GetUser(ctx, req.DiscordUserID); err == nil {
			username = user.DisplayName()
		} else {
			log.Printf("discord user lookup failed for %s: %v", req.DiscordUserID, err)
		}
	}

	svc := linking.NewServiceFromDB(database.GetDB())
	code, err := svc.IssueCode(ctx, req.DiscordUserID, username)
	if err != nil {
		log.Printf("issue link code failed for discord user %s: %v", req.DiscordUserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to issue code"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"code":       code.Code,
		"expires_at": code.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
