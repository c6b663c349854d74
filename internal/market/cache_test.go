package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache(t *testing.T) {
	t.Run("empty cache reports nothing", func(t *testing.T) {
		cache := NewSnapshotCache()

		tokens, setAt, ok := cache.Get()
		assert.False(t, ok)
		assert.Nil(t, tokens)
		assert.True(t, setAt.IsZero())
		assert.False(t, cache.Fresh(time.Hour))
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		cache := NewSnapshotCache()
		snapshot := []TokenRecord{{Address: "addr1", Score: 42}}

		cache.Set(snapshot)

		tokens, setAt, ok := cache.Get()
		require.True(t, ok)
		assert.Equal(t, snapshot, tokens)
		assert.WithinDuration(t, time.Now(), setAt, time.Second)
	})

	t.Run("freshness follows the ttl", func(t *testing.T) {
		cache := NewSnapshotCache()
		cache.Set([]TokenRecord{{Address: "addr1"}})

		assert.True(t, cache.Fresh(time.Minute))

		// Age the snapshot past a tiny TTL
		cache.setAt = time.Now().Add(-10 * time.Millisecond)
		assert.False(t, cache.Fresh(time.Millisecond))
	})

	t.Run("empty snapshot still counts as set", func(t *testing.T) {
		cache := NewSnapshotCache()
		cache.Set([]TokenRecord{})

		_, _, ok := cache.Get()
		assert.True(t, ok)
		assert.True(t, cache.Fresh(time.Minute))
	})
}
