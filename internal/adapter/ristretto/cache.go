// Package ristretto implements the cache port on dgraph-io/ristretto. It
// holds serialized tool lookup payloads so repeated lookups within one
// review session skip the database.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is an in-process cache keyed by tool name + arguments.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache bounded to maxCostBytes of stored payloads.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get returns the cached payload for key, if present.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a payload under key for at most ttl. Ristretto admits writes
// asynchronously, so a Set may be dropped under pressure; lookups tolerate
// misses by going back to the store.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete evicts the payload stored under key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied. Used by tests.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close releases the cache's background resources.
func (c *Cache) Close() {
	c.c.Close()
}
