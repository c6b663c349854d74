package market

import (
	"fmt"
	"time"

	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/gorm"
)

// SnapshotStore persists scored snapshots for history charts
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore creates a snapshot store
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save appends one snapshot row per token record
func (s *SnapshotStore) Save(tokens []TokenRecord) error {
	if len(tokens) == 0 {
		return nil
	}

	rows := make([]models.TokenSnapshot, len(tokens))
	for i, t := range tokens {
		rows[i] = models.TokenSnapshot{
			TokenAddress:   t.Address,
			Symbol:         t.Symbol,
			Score:          t.Score,
			Progress:       t.Progress,
			PriceUsd:       t.PriceUsd,
			LiquidityUsd:   t.LiquidityUsd,
			Volume24hUsd:   t.Volume24hUsd,
			WhaleCount:     t.WhaleCount,
			WhaleInflowUsd: t.WhaleInflowUsd,
			ObservedAt:     t.ObservedAt,
		}
	}

	if err := s.db.Create(&rows).Error; err != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return fmt.Errorf("failed to save token snapshots: %w", err)
	}
	metrics.RecordDatabaseOperation("insert", "success")
	return nil
}

// Prune deletes snapshot rows older than maxAge and returns how many
// were removed
func (s *SnapshotStore) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result := s.db.Unscoped().
		Where("observed_at < ?", cutoff).
		Delete(&models.TokenSnapshot{})
	if result.Error != nil {
		metrics.RecordDatabaseOperation("delete", "failed")
		return 0, fmt.Errorf("failed to prune token snapshots: %w", result.Error)
	}
	metrics.RecordDatabaseOperation("delete", "success")
	return result.RowsAffected, nil
}
