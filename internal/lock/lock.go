// Package lock provides cross-process single-flight per job name.
// Overlapping cycles for the same job are excluded here, at the
// scheduling boundary, instead of with in-process locking around the
// store's check-then-insert.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker acquires per-job locks in Redis
type Locker struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewLocker creates a Redis-backed locker
func NewLocker(redisURL string, logger zerolog.Logger) (*Locker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Locker{
		client: client,
		logger: logger.With().Str("component", "job_lock").Logger(),
	}, nil
}

func key(jobName string) string {
	return "curvewatch:job_lock:" + jobName
}

// Acquire attempts to take the lock for a job. The TTL guards against a
// crashed run holding the lock forever.
func (l *Locker) Acquire(ctx context.Context, jobName string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key(jobName), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", jobName, err)
	}
	if !ok {
		l.logger.Debug().Str("job", jobName).Msg("Job lock already held")
	}
	return ok, nil
}

// Release drops the lock for a job
func (l *Locker) Release(ctx context.Context, jobName string) {
	if err := l.client.Del(ctx, key(jobName)).Err(); err != nil {
		l.logger.Warn().Err(err).Str("job", jobName).Msg("Failed to release job lock")
	}
}

// Close shuts down the underlying Redis client
func (l *Locker) Close() error {
	return l.client.Close()
}
