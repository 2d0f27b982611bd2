package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/internal/pkg/session"
	"github.com/aethex-labs/aethex/internal/pkg/usercontext"
)

// formatTimePtr renders a nullable timestamp as RFC3339 UTC or nil.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// createUserSession writes the logged-in user into the request session.
func createUserSession(c *fiber.Ctx, user *models.User, tier string) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return err
	}
	if tier == "" {
		tier = "free"
	}
	usercontext.CacheTier(user.ID, tier)
	return nil
}

// destroyUserSession drops the caller's session.
func destroyUserSession(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
