package usercontext

import (
	"errors"
	"testing"
	"time"
)

type fakeTierStore struct {
	values map[string]string
}

func (f *fakeTierStore) Set(key string, value interface{}, expiration time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeTierStore) Get(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return v, nil
}

func (f *fakeTierStore) Delete(key string) error {
	delete(f.values, key)
	return nil
}

func withFakeTierStore(t *testing.T) *fakeTierStore {
	t.Helper()
	prev := tiers
	fs := &fakeTierStore{values: map[string]string{}}
	tiers = fs
	t.Cleanup(func() { tiers = prev })
	return fs
}

func TestTierCacheRoundTrip(t *testing.T) {
	withFakeTierStore(t)

	if got := CachedTier(7); got != "" {
		t.Fatalf("cold cache returned %q", got)
	}
	CacheTier(7, "free")
	if got := CachedTier(7); got != "free" {
		t.Fatalf("CachedTier = %q, want free", got)
	}
}

func TestTierCacheOverwrittenOnTierChange(t *testing.T) {
	withFakeTierStore(t)

	CacheTier(7, "free")
	// Billing event processing writes the new tier directly; the next
	// request must see it, not the session-era value.
	CacheTier(7, "pro")
	if got := CachedTier(7); got != "pro" {
		t.Fatalf("CachedTier = %q, want pro after tier change", got)
	}
}

func TestInvalidateTier(t *testing.T) {
	withFakeTierStore(t)

	CacheTier(7, "elite")
	InvalidateTier(7)
	if got := CachedTier(7); got != "" {
		t.Fatalf("CachedTier = %q after invalidation", got)
	}
}

func TestTierCacheIsPerUser(t *testing.T) {
	withFakeTierStore(t)

	CacheTier(7, "pro")
	CacheTier(8, "elite")
	if CachedTier(7) != "pro" || CachedTier(8) != "elite" {
		t.Fatal("tier cache entries must not collide across users")
	}
}
