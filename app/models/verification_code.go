package models

import "time"

// VerificationCode is a short-lived, single-use token issued by the Discord
// bot that proves control of a Discord account. Expiry is enforced at lookup
// time; consumed codes are deleted in the same transaction that writes the
// identity link.
type VerificationCode struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	DiscordUserID   string    `gorm:"type:varchar(32);not null;index" json:"discord_user_id"`
	DiscordUsername string    `gorm:"type:varchar(100);default:''" json:"discord_username"`
	ExpiresAt       time.Time `gorm:"type:timestamp;not null;index" json:"expires_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Expired reports whether the code is no longer consumable at the given time.
func (vc *VerificationCode) Expired(now time.Time) bool {
	return !vc.ExpiresAt.After(now)
}
