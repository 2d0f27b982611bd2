package models

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAPIKeyProducesUsableMaterial(t *testing.T) {
	us := &UserSettings{UserID: 1}

	rawKey, err := us.IssueAPIKey()
	if err != nil {
		t.Fatalf("IssueAPIKey: %v", err)
	}
	if !strings.HasPrefix(rawKey, "atx_") {
		t.Fatalf("key %q missing prefix", rawKey)
	}
	if us.APIKeyHash != HashAPIKey(rawKey) {
		t.Fatal("stored hash does not match the issued key")
	}
	if !strings.HasPrefix(rawKey, us.APIKeyPrefix) {
		t.Fatalf("display prefix %q is not a prefix of the key", us.APIKeyPrefix)
	}
	if !us.HasActiveAPIKey() {
		t.Fatal("freshly issued key should be active")
	}
}

func TestIssueAPIKeyRotates(t *testing.T) {
	us := &UserSettings{UserID: 1}
	first, err := us.IssueAPIKey()
	if err != nil {
		t.Fatalf("first IssueAPIKey: %v", err)
	}
	second, err := us.IssueAPIKey()
	if err != nil {
		t.Fatalf("second IssueAPIKey: %v", err)
	}
	if first == second {
		t.Fatal("rotation produced the same key")
	}
	if us.APIKeyHash == HashAPIKey(first) {
		t.Fatal("old key still matches after rotation")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}
	if _, err := us.IssueAPIKey(); err != nil {
		t.Fatalf("IssueAPIKey: %v", err)
	}

	us.RevokeAPIKey()
	if us.HasActiveAPIKey() {
		t.Fatal("revoked key must not be active")
	}
	if us.APIKeyHash != "" || us.APIKeyRevokedAt == nil {
		t.Fatalf("revocation left metadata behind: hash=%q revoked=%v", us.APIKeyHash, us.APIKeyRevokedAt)
	}
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	if HashAPIKey(" atx_abc ") != HashAPIKey("atx_abc") {
		t.Fatal("hash must be insensitive to surrounding whitespace")
	}
}

func TestVerificationCodeExpired(t *testing.T) {
	now := time.Now()
	vc := &VerificationCode{ExpiresAt: now}
	if !vc.Expired(now) {
		t.Fatal("code expiring exactly now is no longer consumable")
	}
	vc.ExpiresAt = now.Add(time.Second)
	if vc.Expired(now) {
		t.Fatal("code expiring in the future should be consumable")
	}
}
