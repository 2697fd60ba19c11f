package intake

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a minimum interval between a user's accepted
// submissions. Only the most recent accepted timestamp is remembered.
// Allow records the submission and returns zero when it is accepted, or the
// remaining wait when it is not.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64, interval time.Duration) (time.Duration, error)
}

// MemoryLimiter keeps timestamps in process memory
type MemoryLimiter struct {
	mu   sync.Mutex
	last map[int64]time.Time
	now  func() time.Time
}

// NewMemoryLimiter creates a new in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		last: make(map[int64]time.Time),
		now:  time.Now,
	}
}

// WithClock replaces the time source
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, userID int64, interval time.Duration) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[userID]; ok {
		if elapsed := now.Sub(last); elapsed < interval {
			return interval - elapsed, nil
		}
	}

	l.last[userID] = now
	return 0, nil
}

// RedisLimiter stores the last accepted timestamp in redis so several bot
// processes share one limit. The key expires when the interval elapses.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by client. Keys are prefix+userID.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64, interval time.Duration) (time.Duration, error) {
	if interval <= 0 {
		return 0, nil
	}

	key := l.prefix + strconv.FormatInt(userID, 10)
	stamp := strconv.FormatInt(l.now().UnixMilli(), 10)

	// The key can expire between SETNX and PTTL; one retry covers that window.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.client.SetNX(ctx, key, stamp, interval).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to record submission: %w", err)
		}
		if ok {
			return 0, nil
		}

		ttl, err := l.client.PTTL(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to read submission ttl: %w", err)
		}
		if ttl > 0 {
			return ttl, nil
		}
	}

	return 0, nil
}
