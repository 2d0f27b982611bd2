package billing

import (
	"fmt"
	"testing"
	"time"
)

func TestVerifyStripeWebhookSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test_secret"
	now := time.Unix(1700000000, 0)

	header := SignPayload(payload, secret, now)
	if !VerifyStripeWebhookSignature(payload, header, secret, now) {
		t.Fatalf("expected valid signature to verify, header=%q", header)
	}
}

func TestVerifyStripeWebhookSignatureRejectsTamperedBody(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test_secret"
	now := time.Unix(1700000000, 0)
	header := SignPayload(payload, secret, now)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0x01
	if VerifyStripeWebhookSignature(tampered, header, secret, now) {
		t.Fatal("tampered payload must not verify")
	}
}

func TestVerifyStripeWebhookSignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1700000000, 0)
	header := SignPayload(payload, "whsec_right", now)

	if VerifyStripeWebhookSignature(payload, header, "whsec_wrong", now) {
		t.Fatal("signature under a different secret must not verify")
	}
}

func TestVerifyStripeWebhookSignatureTolerance(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test_secret"
	signedAt := time.Unix(1700000000, 0)
	header := SignPayload(payload, secret, signedAt)

	// Inside the window both directions.
	if !VerifyStripeWebhookSignature(payload, header, secret, signedAt.Add(4*time.Minute)) {
		t.Fatal("signature 4m old should verify")
	}
	if !VerifyStripeWebhookSignature(payload, header, secret, signedAt.Add(-4*time.Minute)) {
		t.Fatal("signature 4m in the future should verify")
	}

	// Outside the window.
	if VerifyStripeWebhookSignature(payload, header, secret, signedAt.Add(6*time.Minute)) {
		t.Fatal("signature 6m old must not verify")
	}
	if VerifyStripeWebhookSignature(payload, header, secret, signedAt.Add(-6*time.Minute)) {
		t.Fatal("signature 6m in the future must not verify")
	}
}

func TestVerifyStripeWebhookSignatureMalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test_secret"
	now := time.Unix(1700000000, 0)

	cases := []string{
		"",
		"garbage",
		"t=notanumber,v1=deadbeef",
		"v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		fmt.Sprintf("t=%d,v1=nothex", now.Unix()),
	}
	for _, header := range cases {
		if VerifyStripeWebhookSignature(payload, header, secret, now) {
			t.Fatalf("header %q must not verify", header)
		}
	}
}

func TestVerifyStripeWebhookSignatureMultipleV1(t *testing.T) {
	payload := []byte(`{"a":1}`)
	secret := "whsec_test_secret"
	now := time.Unix(1700000000, 0)

	valid := SignPayload(payload, secret, now)
	// Prepend a bogus v1; Stripe sends several during secret rotation.
	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), "00ff00ff", valid[len(fmt.Sprintf("t=%d,", now.Unix())):])
	if !VerifyStripeWebhookSignature(payload, header, secret, now) {
		t.Fatalf("header with one valid of several v1 entries should verify, header=%q", header)
	}
}

func TestVerifyStripeWebhookSignatureEmptySecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1700000000, 0)
	header := SignPayload(payload, "", now)

	if VerifyStripeWebhookSignature(payload, header, "", now) {
		t.Fatal("empty secret must never verify")
	}
}
