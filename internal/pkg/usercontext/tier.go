package usercontext

import (
	"fmt"
	"time"

	"github.com/aethex-labs/aethex/internal/pkg/cache"
)

// Resolved tiers live in Redis rather than the session so billing event
// processing can overwrite them the moment an entitlement changes, instead of
// users carrying a stale tier for the session lifetime.
const tierCacheTTL = 10 * time.Minute

type tierStore interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
}

type redisTierStore struct{}

func (redisTierStore) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

func (redisTierStore) Get(key string) (string, error) {
	return cache.Get(key)
}

func (redisTierStore) Delete(key string) error {
	return cache.Delete(key)
}

var tiers tierStore = redisTierStore{}

func tierCacheKey(userID uint) string {
	return fmt.Sprintf("user:tier:%d", userID)
}

// CachedTier returns the cached tier for a user, or "" on a miss.
func CachedTier(userID uint) string {
	v, err := tiers.Get(tierCacheKey(userID))
	if err != nil {
		return ""
	}
	return v
}

// CacheTier stores a resolved tier, best-effort.
func CacheTier(userID uint, tier string) {
	_ = tiers.Set(tierCacheKey(userID), tier, tierCacheTTL)
}

// InvalidateTier drops the cached tier so the next request re-reads the
// billing profile.
func InvalidateTier(userID uint) {
	_ = tiers.Delete(tierCacheKey(userID))
}
