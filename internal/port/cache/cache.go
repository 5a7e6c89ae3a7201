// Package cache defines the port interface for the in-process memo cache.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with TTL semantics. The score memo stored
// here is never authoritative: it is keyed by ledger length and any miss
// falls through to a full recomputation from the deliberation store.
type Cache interface {
	// Get retrieves a value. ok is false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}
