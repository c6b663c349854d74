package models

import (
	"time"

	"gorm.io/gorm"
)

// Tier identifies a user's subscription level.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierUltimate Tier = "ultimate"
)

// User represents a dashboard user. The pipeline reads tier and
// notification target only; account management lives elsewhere.
type User struct {
	gorm.Model
	Email          string `gorm:"size:255;uniqueIndex;not null"`
	Tier           Tier   `gorm:"size:20;default:'free';index"`
	TelegramChatID string `gorm:"size:32"`
	LastSeenAt     time.Time
}
