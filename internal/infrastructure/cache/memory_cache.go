package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// MemoryCache implements shared.Cache in process.
// Values are stored JSON-encoded so Get behaves like the Redis implementation.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache that sweeps expired keys every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get implements shared.Cache
func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("cache decode %s: unexpected %T", key, v)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements shared.Cache. A ttl of zero never expires.
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, raw, ttl)
	return nil
}

// Delete implements shared.Cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// DeleteByPattern implements shared.Cache with Redis-style glob matching
func (c *MemoryCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, fmt.Errorf("cache pattern %q: %w", pattern, err)
	}
	deleted := 0
	for key := range c.store.Items() {
		if ok, _ := path.Match(pattern, key); ok {
			c.store.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored keys, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

var _ shared.Cache = (*MemoryCache)(nil)
