package billing

import (
	"testing"
	"time"
)

func TestParseStripeEventEnvelope(t *testing.T) {
	payload := []byte(`{
		"id": "evt_123",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {"object": {"id": "sub_1", "status": "active"}}
	}`)

	ev, err := ParseStripeEvent(payload)
	if err != nil {
		t.Fatalf("ParseStripeEvent: %v", err)
	}
	if ev.ID != "evt_123" || ev.Type != EventSubscriptionUpdated {
		t.Fatalf("unexpected envelope: id=%q type=%q", ev.ID, ev.Type)
	}
	if got := ev.CreatedAt(); !got.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("CreatedAt = %v", got)
	}

	sub, err := ev.Subscription()
	if err != nil {
		t.Fatalf("Subscription: %v", err)
	}
	if sub.ID != "sub_1" || sub.Status != "active" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
}

func TestParseStripeEventRejectsMalformed(t *testing.T) {
	if _, err := ParseStripeEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
	if _, err := ParseStripeEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestEventSubscriptionRequiresID(t *testing.T) {
	ev, err := ParseStripeEvent([]byte(`{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"status":"canceled"}}}`))
	if err != nil {
		t.Fatalf("ParseStripeEvent: %v", err)
	}
	if _, err := ev.Subscription(); err == nil {
		t.Fatal("expected error for subscription object without id")
	}
}

func TestCheckoutSessionUserRef(t *testing.T) {
	cs := &CheckoutSession{ClientReferenceID: " uuid-a ", Metadata: map[string]string{"user_id": "uuid-b"}}
	if got := cs.UserRef(); got != "uuid-a" {
		t.Fatalf("UserRef = %q, want client_reference_id to win", got)
	}

	cs = &CheckoutSession{Metadata: map[string]string{"user_id": "uuid-b"}}
	if got := cs.UserRef(); got != "uuid-b" {
		t.Fatalf("UserRef = %q, want metadata fallback", got)
	}

	cs = &CheckoutSession{}
	if got := cs.UserRef(); got != "" {
		t.Fatalf("UserRef = %q, want empty", got)
	}
}

func TestSubscriptionPriceIDs(t *testing.T) {
	ev, err := ParseStripeEvent([]byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"status": "active",
			"items": {"data": [
				{"price": {"id": "price_basic"}},
				{"price": {"id": ""}},
				{"price": {"id": "price_addon"}}
			]}
		}}
	}`))
	if err != nil {
		t.Fatalf("ParseStripeEvent: %v", err)
	}
	sub, err := ev.Subscription()
	if err != nil {
		t.Fatalf("Subscription: %v", err)
	}
	ids := sub.PriceIDs()
	if len(ids) != 2 || ids[0] != "price_basic" || ids[1] != "price_addon" {
		t.Fatalf("PriceIDs = %v", ids)
	}
}
