package models

import (
	"time"

	"gorm.io/gorm"
)

// AlertType selects which token field a subscription compares against.
type AlertType string

const (
	AlertTypeScore    AlertType = "score"
	AlertTypeProgress AlertType = "progress"
)

// AlertSubscription is created by the user-facing alert surface and
// consumed read-only by the dispatcher. A null TokenAddress means
// "all tokens".
type AlertSubscription struct {
	gorm.Model
	UserID         uint      `gorm:"index;not null"`
	TokenAddress   *string   `gorm:"size:44;index"`
	AlertType      AlertType `gorm:"size:20;not null"`
	ThresholdValue *float64
	IsActive       bool `gorm:"default:true;index"`

	User User `gorm:"foreignKey:UserID"`
}

// AlertHistory is append-only. It doubles as the audit log and as the
// source of truth for daily quota counting, so a delivery that is sent
// but not recorded would silently bypass the quota on the next cycle.
type AlertHistory struct {
	gorm.Model
	UserID       uint   `gorm:"index:idx_alert_history_user_sent;not null"`
	TokenAddress string `gorm:"size:44;index"`
	AlertScore   float64
	SentAt       time.Time `gorm:"index:idx_alert_history_user_sent;not null"`
}
