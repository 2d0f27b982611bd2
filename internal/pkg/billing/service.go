package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Service reconciles local entitlement state against asynchronous billing
// events. Delivery is at-least-once and unordered; idempotence comes from the
// webhook event journal and the per-profile event timestamp guard.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ApplyEvent dispatches a verified, parsed event. Unknown kinds and events
// without a resolvable local account are no-ops: the processor retries loudly
// on anything but an ack, so "nothing to do" is success here. The returned
// TierChange is nil when no profile was touched.
func (s *Service) ApplyEvent(ctx context.Context, ev *Event) (*TierChange, error) {
	switch ev.Type {
	case EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, ev)
	case EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ctx, ev)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, ev)
	default:
		return nil, nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, ev *Event) (*TierChange, error) {
	_ = ctx
	cs, err := ev.CheckoutSession()
	if err != nil {
		return nil, err
	}

	userRef := cs.UserRef()
	if userRef == "" {
		log.Printf("billing: checkout %s carries no local account reference, ignoring", cs.ID)
		return nil, nil
	}

	userID, err := s.repo.GetUserIDByUUID(userRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: checkout %s references unknown account %s, ignoring", cs.ID, userRef)
			return nil, nil
		}
		return nil, err
	}

	profile, err := s.repo.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}
	if stale(profile, ev.CreatedAt()) {
		return nil, nil
	}

	tier := normalizeTier(cs.Metadata["tier"])
	if tier == string(entitlements.TierFree) {
		// A completed checkout always buys at least the baseline paid tier.
		tier = string(entitlements.TierPro)
	}

	change := &TierChange{UserID: userID, OldTier: profile.Tier, NewTier: tier}
	profile.Tier = tier
	profile.SubscriptionStatus = models.SubscriptionStatusActive
	if cs.Customer != "" {
		profile.StripeCustomerID = cs.Customer
	}
	if cs.Subscription != "" {
		profile.StripeSubscriptionID = cs.Subscription
	}
	setEventTime(profile, ev.CreatedAt())

	if err := s.repo.SaveProfile(profile); err != nil {
		return nil, err
	}
	return change, nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, ev *Event) (*TierChange, error) {
	sub, err := ev.Subscription()
	if err != nil {
		return nil, err
	}

	profile, err := s.resolveProfile(sub)
	if err != nil || profile == nil {
		return nil, err
	}
	if stale(profile, ev.CreatedAt()) {
		return nil, nil
	}

	status := strings.ToLower(strings.TrimSpace(sub.Status))
	tier := string(entitlements.TierFree)
	if isEntitlingStatus(status) {
		tier = s.resolveTier(ctx, sub)
	}

	change := &TierChange{UserID: profile.UserID, OldTier: profile.Tier, NewTier: tier}
	profile.Tier = tier
	profile.SubscriptionStatus = status
	profile.StripeSubscriptionID = sub.ID
	if sub.Customer != "" {
		profile.StripeCustomerID = sub.Customer
	}
	setEventTime(profile, ev.CreatedAt())

	if err := s.repo.SaveProfile(profile); err != nil {
		return nil, err
	}
	return change, nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, ev *Event) (*TierChange, error) {
	_ = ctx
	sub, err := ev.Subscription()
	if err != nil {
		return nil, err
	}

	profile, err := s.resolveProfile(sub)
	if err != nil || profile == nil {
		return nil, err
	}
	if stale(profile, ev.CreatedAt()) {
		return nil, nil
	}

	change := &TierChange{UserID: profile.UserID, OldTier: profile.Tier, NewTier: string(entitlements.TierFree)}
	profile.Tier = string(entitlements.TierFree)
	profile.SubscriptionStatus = models.SubscriptionStatusCanceled
	profile.StripeSubscriptionID = ""
	setEventTime(profile, ev.CreatedAt())

	if err := s.repo.SaveProfile(profile); err != nil {
		return nil, err
	}
	return change, nil
}

// resolveProfile finds the billing profile for a subscription event, first via
// metadata.user_id, then by whichever profile currently references the
// subscription id. A nil, nil return means no local account matched.
func (s *Service) resolveProfile(sub *Subscription) (*models.BillingProfile, error) {
	if ref := strings.TrimSpace(sub.Metadata["user_id"]); ref != "" {
		userID, err := s.repo.GetUserIDByUUID(ref)
		if err == nil {
			return s.repo.GetOrCreateProfile(userID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	profile, err := s.repo.GetProfileBySubscriptionID(sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: subscription %s has no linked local account, ignoring", sub.ID)
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// resolveTier maps subscription price refs to an internal tier. Highest-ranked
// mapping wins; metadata.tier is the fallback, then the baseline paid tier.
func (s *Service) resolveTier(ctx context.Context, sub *Subscription) string {
	_ = ctx
	best := ""
	for _, priceID := range sub.PriceIDs() {
		m, err := s.repo.FindActivePlanMapping(models.BillingProviderStripe, priceID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("billing: plan mapping lookup failed for price %s: %v", priceID, err)
			}
			continue
		}
		candidate := normalizeTier(m.InternalTier)
		if best == "" || tierRank(candidate) > tierRank(best) {
			best = candidate
		}
	}
	if best != "" {
		return best
	}
	if tier := strings.TrimSpace(sub.Metadata["tier"]); tier != "" {
		return normalizeTier(tier)
	}
	return string(entitlements.TierPro)
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// stale reports whether an event predates the last applied tier mutation.
// Stale events are acknowledged but must not re-activate old state, e.g. an
// update(active) delivered after the subscription was already deleted.
func stale(profile *models.BillingProfile, eventAt time.Time) bool {
	return profile.TierEventAt != nil && !eventAt.After(*profile.TierEventAt)
}

func setEventTime(profile *models.BillingProfile, eventAt time.Time) {
	t := eventAt
	profile.TierEventAt = &t
}
