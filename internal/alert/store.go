package alert

import (
	"fmt"
	"time"

	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/gorm"
)

// Store wraps the subscription and history tables. Subscriptions are
// read-only here; history is append-only and is the single source of
// quota truth.
type Store struct {
	db *gorm.DB
}

// NewStore creates an alert store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveSubscriptions returns all active subscriptions with their users
// preloaded
func (s *Store) ActiveSubscriptions() ([]models.AlertSubscription, error) {
	var subs []models.AlertSubscription
	err := s.db.Preload("User").
		Where("is_active = ?", true).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active subscriptions: %w", err)
	}
	return subs, nil
}

// CountToday returns how many alerts the user has received since the
// start of the current UTC day
func (s *Store) CountToday(userID uint, now time.Time) (int64, error) {
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	err := s.db.Model(&models.AlertHistory{}).
		Where("user_id = ? AND sent_at >= ?", userID, startOfDay).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count today's alerts: %w", err)
	}
	return count, nil
}

// AppendHistory records one confirmed delivery. Called only after the
// channel reported success, never before.
func (s *Store) AppendHistory(entry models.AlertHistory) error {
	if err := s.db.Create(&entry).Error; err != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return fmt.Errorf("failed to append alert history: %w", err)
	}
	metrics.RecordDatabaseOperation("insert", "success")
	return nil
}
