package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/aethex-labs/aethex/app/models"
)

// fakeRepository keeps billing state in memory so the service can be tested
// without a database.
type fakeRepository struct {
	usersByUUID    map[string]uint
	profiles       map[uint]*models.BillingProfile
	mappings       map[string]string // priceID -> tier
	events         map[string]*models.BillingWebhookEvent
	nextEventID    uint
	saveProfileErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByUUID: map[string]uint{},
		profiles:    map[uint]*models.BillingProfile{},
		mappings:    map[string]string{},
		events:      map[string]*models.BillingWebhookEvent{},
	}
}

func (f *fakeRepository) GetUserIDByUUID(uuid string) (uint, error) {
	if id, ok := f.usersByUUID[uuid]; ok {
		return id, nil
	}
	return 0, gorm.ErrRecordNotFound
}

// Reads hand out copies and writes store copies, mirroring a real DB: a
// failed save must not leak in-memory mutations into later reads.
func (f *fakeRepository) GetOrCreateProfile(userID uint) (*models.BillingProfile, error) {
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	f.profiles[userID] = &models.BillingProfile{UserID: userID, Tier: "free"}
	cp := *f.profiles[userID]
	return &cp, nil
}

func (f *fakeRepository) GetProfileBySubscriptionID(subscriptionID string) (*models.BillingProfile, error) {
	for _, p := range f.profiles {
		if p.StripeSubscriptionID == subscriptionID && subscriptionID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveProfile(profile *models.BillingProfile) error {
	if f.saveProfileErr != nil {
		return f.saveProfileErr
	}
	cp := *profile
	f.profiles[profile.UserID] = &cp
	return nil
}

func (f *fakeRepository) FindActivePlanMapping(provider, stripePriceID string) (*models.BillingPlanMapping, error) {
	tier, ok := f.mappings[stripePriceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.BillingPlanMapping{Provider: provider, StripePriceID: stripePriceID, InternalTier: tier, IsActive: true}, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func checkoutEvent(created int64, userRef, tier string) *Event {
	object := fmt.Sprintf(`{"id":"cs_1","client_reference_id":%q,"customer":"cus_1","subscription":"sub_1","metadata":{"tier":%q}}`, userRef, tier)
	payload := fmt.Sprintf(`{"id":"evt_checkout","type":%q,"created":%d,"data":{"object":%s}}`, EventCheckoutCompleted, created, object)
	ev, err := ParseStripeEvent([]byte(payload))
	if err != nil {
		panic(err)
	}
	return ev
}

func subscriptionEvent(eventType string, created int64, subID, status string, priceIDs ...string) *Event {
	items := ""
	for i, id := range priceIDs {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"price":{"id":%q}}`, id)
	}
	object := fmt.Sprintf(`{"id":%q,"customer":"cus_1","status":%q,"items":{"data":[%s]}}`, subID, status, items)
	payload := fmt.Sprintf(`{"id":"evt_sub","type":%q,"created":%d,"data":{"object":%s}}`, eventType, created, object)
	ev, err := ParseStripeEvent([]byte(payload))
	if err != nil {
		panic(err)
	}
	return ev
}

func TestApplyCheckoutCompletedUpgradesTier(t *testing.T) {
	repo := newFakeRepository()
	repo.usersByUUID["uuid-1"] = 42
	svc := NewService(repo)

	change, err := svc.ApplyEvent(context.Background(), checkoutEvent(1000, "uuid-1", "pro"))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if !change.Changed() || change.UserID != 42 || change.NewTier != "pro" {
		t.Fatalf("unexpected change: %+v", change)
	}

	p := repo.profiles[42]
	if p.Tier != "pro" || p.StripeCustomerID != "cus_1" || p.StripeSubscriptionID != "sub_1" {
		t.Fatalf("profile not updated: %+v", p)
	}
	if p.SubscriptionStatus != models.SubscriptionStatusActive {
		t.Fatalf("status = %q", p.SubscriptionStatus)
	}
}

func TestApplyCheckoutCompletedDefaultsToPaidBaseline(t *testing.T) {
	repo := newFakeRepository()
	repo.usersByUUID["uuid-1"] = 42
	svc := NewService(repo)

	// No usable tier metadata: a completed checkout still buys pro.
	change, err := svc.ApplyEvent(context.Background(), checkoutEvent(1000, "uuid-1", ""))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if change.NewTier != "pro" {
		t.Fatalf("NewTier = %q, want pro", change.NewTier)
	}
}

func TestApplyCheckoutUnknownAccountIsNoOp(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	change, err := svc.ApplyEvent(context.Background(), checkoutEvent(1000, "uuid-nobody", "pro"))
	if err != nil {
		t.Fatalf("unknown account must not error: %v", err)
	}
	if change.Changed() {
		t.Fatalf("unexpected change: %+v", change)
	}
	if len(repo.profiles) != 0 {
		t.Fatal("no profile should have been created")
	}
}

func TestApplySubscriptionDeletedResetsToFree(t *testing.T) {
	repo := newFakeRepository()
	repo.profiles[42] = &models.BillingProfile{UserID: 42, Tier: "elite", StripeSubscriptionID: "sub_1"}
	svc := NewService(repo)

	change, err := svc.ApplyEvent(context.Background(), subscriptionEvent(EventSubscriptionDeleted, 2000, "sub_1", "canceled"))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if change.OldTier != "elite" || change.NewTier != "free" {
		t.Fatalf("unexpected change: %+v", change)
	}

	p := repo.profiles[42]
	if p.Tier != "free" || p.StripeSubscriptionID != "" {
		t.Fatalf("profile not reset: %+v", p)
	}
	if p.SubscriptionStatus != models.SubscriptionStatusCanceled {
		t.Fatalf("status = %q", p.SubscriptionStatus)
	}
}

func TestStaleUpdateAfterDeleteIsIgnored(t *testing.T) {
	repo := newFakeRepository()
	repo.profiles[42] = &models.BillingProfile{UserID: 42, Tier: "pro", StripeSubscriptionID: "sub_1"}
	svc := NewService(repo)
	ctx := context.Background()

	// Deletion arrives first, carrying the later event timestamp.
	if _, err := svc.ApplyEvent(ctx, subscriptionEvent(EventSubscriptionDeleted, 3000, "sub_1", "canceled")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if repo.profiles[42].Tier != "free" {
		t.Fatalf("tier after delete = %q", repo.profiles[42].Tier)
	}

	// The older update(active) is redelivered out of order. The subscription
	// id was cleared by the delete, so re-seed it to force a profile match.
	repo.profiles[42].StripeSubscriptionID = "sub_1"
	change, err := svc.ApplyEvent(ctx, subscriptionEvent(EventSubscriptionUpdated, 2500, "sub_1", "active"))
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if change.Changed() {
		t.Fatalf("stale event produced a change: %+v", change)
	}
	if repo.profiles[42].Tier != "free" {
		t.Fatalf("stale event re-activated tier: %q", repo.profiles[42].Tier)
	}
}

func TestApplySubscriptionUpdatedUsesPlanMapping(t *testing.T) {
	repo := newFakeRepository()
	repo.profiles[42] = &models.BillingProfile{UserID: 42, Tier: "free", StripeSubscriptionID: "sub_1"}
	repo.mappings["price_pro"] = "pro"
	repo.mappings["price_elite"] = "elite"
	svc := NewService(repo)

	change, err := svc.ApplyEvent(context.Background(),
		subscriptionEvent(EventSubscriptionUpdated, 2000, "sub_1", "active", "price_pro", "price_elite"))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if change.NewTier != "elite" {
		t.Fatalf("NewTier = %q, want highest mapped tier", change.NewTier)
	}
}

func TestApplySubscriptionUpdatedPastDueDropsToFree(t *testing.T) {
	repo := newFakeRepository()
	repo.profiles[42] = &models.BillingProfile{UserID: 42, Tier: "pro", StripeSubscriptionID: "sub_1"}
	svc := NewService(repo)

	change, err := svc.ApplyEvent(context.Background(),
		subscriptionEvent(EventSubscriptionUpdated, 2000, "sub_1", "past_due"))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if change.NewTier != "free" {
		t.Fatalf("NewTier = %q, want free for past_due", change.NewTier)
	}
	if repo.profiles[42].SubscriptionStatus != "past_due" {
		t.Fatalf("status = %q", repo.profiles[42].SubscriptionStatus)
	}
}

func TestApplyEventUnknownTypeIsNoOp(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	ev, err := ParseStripeEvent([]byte(`{"id":"evt_x","type":"invoice.finalized","data":{"object":{}}}`))
	if err != nil {
		t.Fatalf("ParseStripeEvent: %v", err)
	}
	change, err := svc.ApplyEvent(context.Background(), ev)
	if err != nil || change.Changed() {
		t.Fatalf("unknown event type must be a silent no-op, change=%+v err=%v", change, err)
	}
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_dup",
		EventType:       EventCheckoutCompleted,
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}
	created, first, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil || !created {
		t.Fatalf("first record: created=%v err=%v", created, err)
	}
	created, second, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if created {
		t.Fatal("duplicate delivery must not count as created")
	}
	if first.ID != second.ID {
		t.Fatalf("dedup returned a different row: %d vs %d", first.ID, second.ID)
	}
}

func TestRecordWebhookEventHashesMissingID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	in := WebhookEventInput{Provider: "stripe", PayloadJSON: `{"no":"id"}`, SignatureValid: true}
	created, ev, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil || !created {
		t.Fatalf("record: created=%v err=%v", created, err)
	}
	if len(ev.ProviderEventID) == 0 || ev.ProviderEventID[:5] != "hash:" {
		t.Fatalf("ProviderEventID = %q, want hash fallback", ev.ProviderEventID)
	}

	// Same payload, same derived id, still deduplicated.
	created, _, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil || created {
		t.Fatalf("hash-keyed duplicate not deduplicated: created=%v err=%v", created, err)
	}
}

func TestRedeliveryAfterFailedApplyIsReprocessed(t *testing.T) {
	repo := newFakeRepository()
	repo.usersByUUID["uuid-1"] = 42
	svc := NewService(repo)
	ctx := context.Background()

	ev := checkoutEvent(1000, "uuid-1", "pro")
	in := WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_retry",
		EventType:       ev.Type,
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}

	// First delivery: journaled, but the apply fails transiently.
	created, stored, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil || !created {
		t.Fatalf("first record: created=%v err=%v", created, err)
	}
	repo.saveProfileErr = errors.New("connection reset")
	if _, applyErr := svc.ApplyEvent(ctx, ev); applyErr == nil {
		t.Fatal("expected apply to fail")
	} else if err := svc.MarkWebhookProcessed(ctx, stored.ID, applyErr); err != nil {
		t.Fatalf("mark failed apply: %v", err)
	}

	// Redelivery: the journal row exists, but the event was never applied
	// cleanly, so it must not be treated as a duplicate.
	repo.saveProfileErr = nil
	created, stored, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if created {
		t.Fatal("redelivery must hit the existing journal row")
	}
	if !stored.NeedsProcessing() {
		t.Fatal("event with a failed apply must still need processing")
	}

	change, err := svc.ApplyEvent(ctx, ev)
	if err != nil {
		t.Fatalf("retry apply: %v", err)
	}
	if !change.Changed() || change.NewTier != "pro" {
		t.Fatalf("retry did not apply the tier: %+v", change)
	}
	if repo.profiles[42].Tier != "pro" {
		t.Fatalf("profile tier = %q after retry", repo.profiles[42].Tier)
	}
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, nil); err != nil {
		t.Fatalf("mark retry: %v", err)
	}

	// Third delivery: now it really is a duplicate.
	created, stored, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil || created {
		t.Fatalf("third record: created=%v err=%v", created, err)
	}
	if stored.NeedsProcessing() {
		t.Fatal("cleanly processed event must not need processing")
	}
}

func TestMarkWebhookProcessedStoresError(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, ev, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{Provider: "stripe", ProviderEventID: "evt_1", PayloadJSON: `{}`})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.MarkWebhookProcessed(ctx, ev.ID, fmt.Errorf("boom")); err != nil {
		t.Fatalf("mark: %v", err)
	}
	stored := repo.events["stripe/evt_1"]
	if stored.ProcessedAt == nil || stored.ProcessingError != "boom" {
		t.Fatalf("event not marked: %+v", stored)
	}
}
