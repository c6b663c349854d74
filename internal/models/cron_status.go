package models

import (
	"time"

	"gorm.io/gorm"
)

// CronRunStatus keeps exactly one row per scheduled job, overwritten on
// every run. It never grows: failures update the error columns, successes
// update the success columns.
type CronRunStatus struct {
	gorm.Model
	JobName            string `gorm:"size:64;uniqueIndex;not null"`
	LastSuccessAt      *time.Time
	LastSuccessSummary string `gorm:"type:text"`
	LastErrorAt        *time.Time
	LastErrorMessage   string `gorm:"type:text"`
}
