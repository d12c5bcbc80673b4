package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scimarket/scimarketd/internal/domain"
)

// ContentCache memoizes resolved metadata documents in Redis with a TTL, so
// repeated scans do not hammer the IPFS gateway for immutable content.
type ContentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.ContentCache = (*ContentCache)(nil)

// NewContentCache creates a ContentCache backed by the given Client.
func NewContentCache(c *Client, ttl time.Duration) *ContentCache {
	return &ContentCache{rdb: c.Underlying(), ttl: ttl}
}

func contentKey(pointer string) string {
	return Key("content", "meta", pointer)
}

// Get returns the cached metadata for pointer, or ErrNotFound on a miss.
func (cc *ContentCache) Get(ctx context.Context, pointer string) (domain.ContentMeta, error) {
	raw, err := cc.rdb.Get(ctx, contentKey(pointer)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ContentMeta{}, fmt.Errorf("redis: content %s: %w", pointer, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ContentMeta{}, fmt.Errorf("redis: content get %s: %w", pointer, err)
	}
	var meta domain.ContentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.ContentMeta{}, fmt.Errorf("redis: content decode %s: %w", pointer, err)
	}
	return meta, nil
}

// Set stores resolved metadata for pointer under the configured TTL.
func (cc *ContentCache) Set(ctx context.Context, pointer string, meta domain.ContentMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("redis: content encode %s: %w", pointer, err)
	}
	if err := cc.rdb.Set(ctx, contentKey(pointer), raw, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: content set %s: %w", pointer, err)
	}
	return nil
}
