package entitlements

import "strings"

type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

// Normalize maps arbitrary tier strings to a known tier, defaulting to free.
func Normalize(tier string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(tier))) {
	case TierPro:
		return TierPro
	case TierElite:
		return TierElite
	default:
		return TierFree
	}
}

// Rank orders tiers for comparisons; higher is better.
func Rank(tier Tier) int {
	switch tier {
	case TierElite:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

// MaxProjects returns the project quota for a tier. 0 means unlimited.
func MaxProjects(tier Tier) int {
	switch tier {
	case TierElite:
		return 0
	case TierPro:
		return 25
	default:
		return 3
	}
}

// MaxUploadBytes returns the per-file upload limit for a tier.
func MaxUploadBytes(tier Tier) int64 {
	switch tier {
	case TierElite:
		return 512 << 20
	case TierPro:
		return 128 << 20
	default:
		return 16 << 20
	}
}
