package whale

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WhaleEvent{}))

	return db
}

func testEvent(txHash string) models.WhaleEvent {
	return models.WhaleEvent{
		TxHash:       txHash,
		TokenAddress: "TokenAddr1111111111111111111111111111111111",
		TokenSymbol:  "TEST",
		Direction:    models.DirectionTransfer,
		AmountTokens: 1000,
		AmountUsd:    10_000,
		BlockTime:    time.Now().UTC(),
	}
}

func TestEventStoreInsertNew(t *testing.T) {
	store := NewEventStore(newTestDB(t))

	t.Run("empty batch is a no-op", func(t *testing.T) {
		inserted, err := store.InsertNew(nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})

	t.Run("first insert writes every row", func(t *testing.T) {
		inserted, err := store.InsertNew([]models.WhaleEvent{
			testEvent("sig1"), testEvent("sig2"), testEvent("sig3"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), inserted)
	})

	t.Run("conflicting hashes are silently skipped", func(t *testing.T) {
		inserted, err := store.InsertNew([]models.WhaleEvent{
			testEvent("sig2"), // already persisted
			testEvent("sig4"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)

		var count int64
		require.NoError(t, store.db.Model(&models.WhaleEvent{}).Where("tx_hash = ?", "sig2").Count(&count).Error)
		assert.Equal(t, int64(1), count, "a tx hash must never gain a second row")
	})

	t.Run("replaying a full batch writes nothing", func(t *testing.T) {
		inserted, err := store.InsertNew([]models.WhaleEvent{
			testEvent("sig1"), testEvent("sig2"), testEvent("sig3"), testEvent("sig4"),
		})
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})
}

func TestEventStoreExistingHashes(t *testing.T) {
	store := NewEventStore(newTestDB(t))

	_, err := store.InsertNew([]models.WhaleEvent{testEvent("known1"), testEvent("known2")})
	require.NoError(t, err)

	t.Run("empty input yields empty map", func(t *testing.T) {
		existing, err := store.ExistingHashes(nil)
		require.NoError(t, err)
		assert.Empty(t, existing)
	})

	t.Run("mixed batch flags only the known hashes", func(t *testing.T) {
		existing, err := store.ExistingHashes([]string{"known1", "fresh1", "known2", "fresh2"})
		require.NoError(t, err)

		assert.True(t, existing["known1"])
		assert.True(t, existing["known2"])
		assert.False(t, existing["fresh1"])
		assert.False(t, existing["fresh2"])
	})
}
