// Package ratelimit throttles REST requests per user. It generalizes the
// teacher's RedisPrefix-scoped bucket keying (gateway/manager.go's
// Configuration.RedisPrefix) into a small per-user limiter: when Redis is
// configured it is a fixed-window counter (INCR+EXPIRE) so limits are
// shared across every server process, and otherwise an in-memory
// golang.org/x/time/rate token bucket per process.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/paracordchat/paracord/internal/models"
)

// Limiter throttles actions keyed by user ID.
type Limiter interface {
	Allow(ctx context.Context, userID models.Snowflake) (bool, error)
}

// RedisLimiter is a fixed-window counter backed by Redis, keyed
// "<prefix>:ratelimit:<user_id>", matching the key-prefixing convention
// the teacher's Configuration.RedisPrefix establishes.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter constructs a RedisLimiter allowing limit requests per
// window, per user.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow increments the counter for userID and reports whether this request
// stays within the configured window limit.
func (l *RedisLimiter) Allow(ctx context.Context, userID models.Snowflake) (bool, error) {
	key := fmt.Sprintf("%s:ratelimit:%s", l.prefix, userID.String())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incrementing %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: setting expiry on %s: %w", key, err)
		}
	}

	return count <= int64(l.limit), nil
}

// MemoryLimiter is a per-process token-bucket limiter, one
// golang.org/x/time/rate.Limiter per user, used when no Redis endpoint is
// configured (single-node deployments).
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[models.Snowflake]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewMemoryLimiter constructs a MemoryLimiter allowing the given sustained
// rate (per second) with the given burst size.
func NewMemoryLimiter(perSecond float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[models.Snowflake]*rate.Limiter),
		r:        rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether userID's token bucket currently has a token to
// spend, consuming one if so.
func (l *MemoryLimiter) Allow(_ context.Context, userID models.Snowflake) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[userID] = lim
	}
	return lim.Allow(), nil
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)
