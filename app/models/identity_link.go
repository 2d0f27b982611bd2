package models

import "time"

// IdentityLink binds a Discord account to exactly one local user. The unique
// index on discord_user_id is the ownership invariant: relinking the same
// pair is an upsert no-op, a different owner is a conflict.
type IdentityLink struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DiscordUserID   string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"discord_user_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	DiscordUsername string    `gorm:"type:varchar(100);default:''" json:"discord_username"`
	LinkedAt        time.Time `gorm:"type:timestamp;not null" json:"linked_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
