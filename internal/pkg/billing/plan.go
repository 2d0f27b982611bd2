package billing

import (
	"strings"

	"github.com/aethex-labs/aethex/internal/pkg/entitlements"
)

func normalizeTier(tier string) string {
	return string(entitlements.Normalize(tier))
}

func tierRank(tier string) int {
	return entitlements.Rank(entitlements.Normalize(tier))
}

// isEntitlingStatus reports whether a subscription status keeps a paid tier.
// past_due and unpaid drop to free immediately; Stripe retries dunning on its
// own and a recovery event restores the tier.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}
