package models

import "time"

// BillingPlanMapping maps Stripe price IDs to internal entitlement tiers.
// Webhook processing consults this table before falling back to event
// metadata, so tier changes can be rolled out without a deploy.
type BillingPlanMapping struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Provider      string    `gorm:"type:varchar(20);not null;index:ux_billing_plan_mappings_ref,unique,priority:1;index" json:"provider"`
	StripePriceID string    `gorm:"type:varchar(191);not null;index:ux_billing_plan_mappings_ref,unique,priority:2" json:"stripe_price_id"`
	InternalTier  string    `gorm:"type:varchar(50);not null;default:'free';index" json:"internal_tier"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
