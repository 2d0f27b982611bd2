package controllers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/app/repository"
	"github.com/aethex-labs/aethex/internal/pkg/billing"
	"github.com/aethex-labs/aethex/internal/pkg/database"
	"github.com/aethex-labs/aethex/internal/pkg/env"
	"github.com/aethex-labs/aethex/internal/pkg/mail"
	"github.com/aethex-labs/aethex/internal/pkg/usercontext"
)

// HandleStripeWebhook receives billing events from the payment processor.
// Signature verification happens on the raw bytes before anything is parsed.
// Once the signature passes, the handler always acks with 200: the processor
// retries on any other status, and a missing local account is our problem to
// log, not Stripe's to redeliver forever.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !billing.VerifyStripeWebhookSignature(rawBody, signature, secret, time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := billing.ParseStripeEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	// A redelivery is only a duplicate once the event has been applied
	// cleanly. If the first apply failed we returned 500, asked the
	// processor to retry, and must actually process that retry.
	if !created && !stored.NeedsProcessing() {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	change, applyErr := svc.ApplyEvent(ctx, ev)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, applyErr)
	if applyErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_apply_failed"})
	}

	if change.Changed() {
		usercontext.CacheTier(change.UserID, change.NewTier)
		notifyTierChange(change)
	}

	return c.JSON(fiber.Map{"received": true})
}

// notifyTierChange emails the user about their new tier, best-effort.
func notifyTierChange(change *billing.TierChange) {
	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, change.UserID)
	if err != nil || !settings.NotifyTierChange {
		return
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(change.UserID)
	if err != nil {
		log.Printf("tier change notify: user %d lookup failed: %v", change.UserID, err)
		return
	}

	subject := fmt.Sprintf("Your AeThex plan is now %s", change.NewTier)
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your subscription tier changed from <b>%s</b> to <b>%s</b>.</p>",
		user.Name, change.OldTier, change.NewTier)
	_ = mail.SendMail(user.Email, subject, body)
}
