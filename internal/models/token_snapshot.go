package models

import (
	"time"

	"gorm.io/gorm"
)

// TokenSnapshot is an optional scored snapshot written after a refresh
// cycle for score history charts. Full TokenRecord fidelity is never
// persisted; snapshots are pruned by age.
type TokenSnapshot struct {
	gorm.Model
	TokenAddress   string `gorm:"size:44;index:idx_token_snapshots_addr_time;not null"`
	Symbol         string `gorm:"size:20"`
	Score          float64
	Progress       float64
	PriceUsd       float64
	LiquidityUsd   float64
	Volume24hUsd   float64
	WhaleCount     int
	WhaleInflowUsd float64
	ObservedAt     time.Time `gorm:"index:idx_token_snapshots_addr_time;not null"`
}
