package domain

import (
	"context"
	"time"
)

// ContentMeta holds the descriptive fields resolved from a token's off-chain
// metadata document.
type ContentMeta struct {
	Name        string
	Description string
	ImageURL    string
}

// ContentResolver fetches descriptive metadata for a content pointer (an IPFS
// URI or gateway URL). Resolution is best-effort: callers treat any error as
// ErrMetadataUnavail and keep the record with missing fields.
type ContentResolver interface {
	Resolve(ctx context.Context, pointer string) (ContentMeta, error)
}

// ContentCache memoizes resolved metadata, keyed by content pointer. Entries
// are bounded by TTL; the cache is injected into the resolver rather than
// held as package state.
type ContentCache interface {
	Get(ctx context.Context, pointer string) (ContentMeta, error)
	Set(ctx context.Context, pointer string, meta ContentMeta) error
}

// RateLimiter provides request rate limiting for the API surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
