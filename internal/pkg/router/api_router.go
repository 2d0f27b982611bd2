package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/aethex-labs/aethex/app/controllers"
	"github.com/aethex-labs/aethex/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Billing webhook comes first and carries no auth middleware: the
	// provider authenticates through the payload signature.
	v1.Post("/billing/webhook", controllers.HandleStripeWebhook)

	// Session-authenticated user routes.
	user := v1.Group("/user", middleware.RequireAPISessionAuth)
	user.Get("/me", controllers.HandleAccountInfo)
	user.Post("/api-key", controllers.HandleIssueAPIKey)
	user.Delete("/api-key", controllers.HandleRevokeAPIKey)
	user.Post("/discord/verify", controllers.HandleDiscordVerify)
	user.Get("/discord/status", controllers.HandleDiscordStatus)
	user.Delete("/discord/link", controllers.HandleDiscordUnlink)

	// API-key variants for programmatic access to the same account surface.
	keyed := v1.Group("/account", middleware.APIKeyAuthMiddleware())
	keyed.Get("/me", controllers.HandleAccountInfo)
	keyed.Get("/discord/status", controllers.HandleDiscordStatus)

	// Bot routes authenticate with the shared bot token.
	bot := v1.Group("/bot", middleware.BotTokenAuthMiddleware())
	bot.Post("/link-codes", controllers.HandleBotIssueLinkCode)

	// Admin routes require an authenticated admin session.
	admin := v1.Group("/admin", middleware.RequireAPISessionAuth, middleware.RequireAdmin)
	admin.Get("/webhook-events", controllers.HandleAdminListWebhookEvents)
	admin.Get("/settings", controllers.HandleAdminGetSettings)
	admin.Put("/settings", controllers.HandleAdminUpdateSettings)
	admin.Get("/plan-mappings", controllers.HandleAdminListPlanMappings)
	admin.Post("/plan-mappings", controllers.HandleAdminUpsertPlanMapping)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
