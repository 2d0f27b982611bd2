package models

import (
	"testing"
	"time"
)

func TestBillingWebhookEventNeedsProcessing(t *testing.T) {
	now := time.Now()

	ev := &BillingWebhookEvent{}
	if !ev.NeedsProcessing() {
		t.Fatal("unprocessed event must need processing")
	}

	ev = &BillingWebhookEvent{ProcessedAt: &now, ProcessingError: "connection reset"}
	if !ev.NeedsProcessing() {
		t.Fatal("event whose apply failed must need processing")
	}

	ev = &BillingWebhookEvent{ProcessedAt: &now}
	if ev.NeedsProcessing() {
		t.Fatal("cleanly processed event must not need processing")
	}
}
