package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// TierChange describes an entitlement mutation applied by event processing.
// Callers use it for session refresh and notification fan-out.
type TierChange struct {
	UserID  uint
	OldTier string
	NewTier string
}

// Changed reports whether the event actually moved the tier.
func (tc *TierChange) Changed() bool {
	return tc != nil && tc.OldTier != tc.NewTier
}
