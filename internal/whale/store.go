package whale

import (
	"fmt"

	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStore wraps the whale_events table. The unique index on tx_hash
// is the dedup enforcement boundary: writes always go through
// ON CONFLICT DO NOTHING, so a race between overlapping cycles can
// never produce a second row for the same signature.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates an event store
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// ExistingHashes returns which of the given tx hashes are already
// persisted, in one batched lookup
func (s *EventStore) ExistingHashes(hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}

	var found []string
	err := s.db.Model(&models.WhaleEvent{}).
		Where("tx_hash IN ?", hashes).
		Pluck("tx_hash", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query existing tx hashes: %w", err)
	}

	existing := make(map[string]bool, len(found))
	for _, h := range found {
		existing[h] = true
	}
	return existing, nil
}

// InsertNew persists a batch of events, silently skipping any whose
// tx_hash already exists. Returns the number of rows actually written.
func (s *EventStore) InsertNew(events []models.WhaleEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(&events)
	if result.Error != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return 0, fmt.Errorf("failed to insert whale events: %w", result.Error)
	}

	metrics.RecordDatabaseOperation("insert", "success")
	return result.RowsAffected, nil
}
