package models

import (
	"time"

	"gorm.io/gorm"
)

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusUnpaid   = "unpaid"
	SubscriptionStatusCanceled = "canceled"
)

// BillingProfile is the denormalized entitlement state for a user. The tier
// field is mutated exclusively by the billing event service; user-facing
// writes never touch it. TierEventAt records the external event timestamp of
// the last applied mutation so stale, out-of-order deliveries can be ignored.
type BillingProfile struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Tier                 string     `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);default:'';index" json:"stripe_subscription_id"`
	SubscriptionStatus   string     `gorm:"type:varchar(32);default:''" json:"subscription_status"`
	TierEventAt          *time.Time `gorm:"type:timestamp;default:null" json:"tier_event_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateBillingProfile returns the existing profile or creates a free one.
func GetOrCreateBillingProfile(db *gorm.DB, userID uint) (*BillingProfile, error) {
	var bp BillingProfile
	if err := db.Where("user_id = ?", userID).First(&bp).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			bp = BillingProfile{UserID: userID, Tier: "free"}
			if err := db.Create(&bp).Error; err != nil {
				return nil, err
			}
			return &bp, nil
		}
		return nil, err
	}
	return &bp, nil
}
