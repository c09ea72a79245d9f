package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or its entry has expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrInvalidValue is returned when a stored value cannot be decoded.
	ErrInvalidValue = errors.New("cache: invalid value")
)

// Cache defines the interface for cache operations.
type Cache interface {
	// Get retrieves a value from cache. An expired entry behaves exactly
	// like a missing one.
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores a value in cache with TTL, overwriting any existing entry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key from cache.
	Delete(ctx context.Context, key string) error

	// Close releases cache resources.
	Close() error
}
