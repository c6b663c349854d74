package models

import (
	"time"

	"gorm.io/gorm"
)

// TransferDirection classifies a token transfer.
type TransferDirection string

const (
	DirectionMint     TransferDirection = "mint"
	DirectionBurn     TransferDirection = "burn"
	DirectionTransfer TransferDirection = "transfer"
)

// WhaleEvent is the persisted record of a large transfer that cleared the
// USD floor. TxHash carries the unique constraint that enforces dedup:
// inserts must go through ON CONFLICT DO NOTHING, never plain INSERT.
type WhaleEvent struct {
	gorm.Model
	TxHash          string            `gorm:"size:88;uniqueIndex;not null"`
	TokenAddress    string            `gorm:"size:44;index;not null"`
	TokenSymbol     string            `gorm:"size:20"`
	Direction       TransferDirection `gorm:"size:10;not null"`
	AmountTokens    float64
	AmountUsd       float64   `gorm:"index"`
	SenderAccount   string    `gorm:"size:44"`
	ReceiverAccount string    `gorm:"size:44"`
	BlockTime       time.Time `gorm:"index"`
}
