package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/internal/pkg/env"
)

// BotTokenAuthMiddleware authenticates the Discord bot's service requests via
// the shared secret in BOT_API_TOKEN. The bot is the only caller allowed to
// mint verification codes.
func BotTokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := strings.TrimSpace(env.GetEnv("BOT_API_TOKEN", ""))
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Bot API is not configured"})
		}

		token := strings.TrimSpace(c.Get("X-Bot-Token"))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid bot token"})
		}

		return c.Next()
	}
}
