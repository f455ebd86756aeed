// Package cache defines the port interface for the lookup-result cache.
// The review tools are read-only and idempotent, so their payloads can be
// cached aggressively in front of the store.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching of lookup payloads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
