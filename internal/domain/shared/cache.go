package shared

import (
	"context"
	"time"
)

// Cache is a shared key-value store with TTL-based expiry.
// Values are serialized by the implementation; Get decodes into dest.
type Cache interface {
	// Get loads key into dest. It returns false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes a single key
	Delete(ctx context.Context, key string) error
	// DeleteByPattern removes all keys matching a glob pattern and returns how many were removed
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}
