// Package cache holds short-lived read caches. Values are always safe to drop:
// a miss falls back to the store.
package cache

import (
	"context"
	"time"
)

// Cache is a keyed TTL cache. Implementations never return errors to the caller;
// a backend failure is logged and treated as a miss.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
