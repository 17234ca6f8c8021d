// Package cache provides the key/value store used by the API clients to
// avoid redundant upstream calls. Two backends exist: Redis when REDIS_HOST
// is configured, and a SQLite-backed store otherwise. Values are serialized
// JSON payloads; TTLs are assigned by the calling provider client.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the fallback for stores constructed without an explicit
// default. Seven days.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the cache contract shared by both backends.
type Store interface {
	// Get returns the cached payload for key, or (nil, false, nil) on a
	// miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes a payload with the given TTL. A zero TTL stores with the
	// store's default rather than forever - nothing in this cache is
	// permanent.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a single key.
	Del(ctx context.Context, key string) error

	// Keys returns keys matching a glob-style pattern (e.g. "edgar:*").
	Keys(ctx context.Context, pattern string) ([]string, error)

	// FlushAll removes every entry.
	FlushAll(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// TTLs holds the configured cache lifetimes for the different data classes.
type TTLs struct {
	Default    time.Duration // near-static registry/entity data
	MarketData time.Duration // volatile quotes
	News       time.Duration // headlines
}
