package billing

import "testing"

func TestNormalizeTier(t *testing.T) {
	cases := map[string]string{
		"pro":      "pro",
		" Elite ":  "elite",
		"PRO":      "pro",
		"free":     "free",
		"":         "free",
		"platinum": "free",
	}
	for in, want := range cases {
		if got := normalizeTier(in); got != want {
			t.Fatalf("normalizeTier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTierRankOrdering(t *testing.T) {
	if !(tierRank("elite") > tierRank("pro") && tierRank("pro") > tierRank("free")) {
		t.Fatalf("rank ordering broken: elite=%d pro=%d free=%d",
			tierRank("elite"), tierRank("pro"), tierRank("free"))
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	entitling := []string{"active", "trialing", " Active "}
	for _, s := range entitling {
		if !isEntitlingStatus(s) {
			t.Fatalf("status %q should entitle", s)
		}
	}
	notEntitling := []string{"past_due", "unpaid", "canceled", "incomplete", ""}
	for _, s := range notEntitling {
		if isEntitlingStatus(s) {
			t.Fatalf("status %q should not entitle", s)
		}
	}
}
