package cronserver

import (
	"fmt"
	"time"

	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunStatusStore keeps exactly one status row per job, overwritten on
// every run for operational visibility
type RunStatusStore struct {
	db *gorm.DB
}

// NewRunStatusStore creates a run status store
func NewRunStatusStore(db *gorm.DB) *RunStatusStore {
	return &RunStatusStore{db: db}
}

// RecordSuccess upserts the job's row with a success timestamp and
// summary
func (s *RunStatusStore) RecordSuccess(jobName, summary string) error {
	now := time.Now().UTC()
	row := models.CronRunStatus{
		JobName:            jobName,
		LastSuccessAt:      &now,
		LastSuccessSummary: summary,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_success_at", "last_success_summary", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record job success: %w", err)
	}
	return nil
}

// RecordFailure upserts the job's row with an error timestamp and
// message
func (s *RunStatusStore) RecordFailure(jobName, message string) error {
	now := time.Now().UTC()
	row := models.CronRunStatus{
		JobName:          jobName,
		LastErrorAt:      &now,
		LastErrorMessage: message,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_error_at", "last_error_message", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record job failure: %w", err)
	}
	return nil
}
