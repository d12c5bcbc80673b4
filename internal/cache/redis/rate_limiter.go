package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scimarket/scimarketd/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a fixed-window counter per
// key. INCR and the initial EXPIRE run in one pipeline so the window always
// gains a TTL.
type RateLimiter struct {
	rdb *redis.Client
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

func rateLimitKey(key string, window time.Duration) string {
	bucket := time.Now().UnixNano() / int64(window)
	return Key("ratelimit", key, fmt.Sprintf("%d", bucket))
}

// Allow counts a request against key's current window and reports whether it
// stays within limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := rateLimitKey(key, window)

	pipe := rl.rdb.TxPipeline()
	count := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return count.Val() <= int64(limit), nil
}
