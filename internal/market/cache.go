package market

import (
	"sync"
	"time"
)

// SnapshotCache holds the latest token snapshot behind a mutex. It is an
// explicit object injected into the Aggregator rather than process-wide
// state, so the TTL window is independently testable.
type SnapshotCache struct {
	mu     sync.RWMutex
	tokens []TokenRecord
	setAt  time.Time
}

// NewSnapshotCache creates an empty cache
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Set stores a snapshot and stamps it with the current time
func (c *SnapshotCache) Set(tokens []TokenRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	c.setAt = time.Now()
}

// Get returns the cached snapshot, its set time, and whether one exists
func (c *SnapshotCache) Get() ([]TokenRecord, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return nil, time.Time{}, false
	}
	return c.tokens, c.setAt, true
}

// Fresh reports whether the cached snapshot is younger than ttl
func (c *SnapshotCache) Fresh(ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens != nil && time.Since(c.setAt) < ttl
}
