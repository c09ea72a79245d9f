package cache

import (
	"context"
	"time"
)

// maxL1TTL caps how long the in-memory tier holds an entry; the L2 tier
// keeps the caller-requested TTL.
const maxL1TTL = 1 * time.Minute

// LayeredCache implements a two-tier cache (L1: memory, L2: Redis).
// L1 keeps hot lookups local; L2 shares results across instances.
type LayeredCache struct {
	l1 Cache
	l2 Cache
}

// NewLayeredCache creates a new layered cache. Either tier may be nil.
func NewLayeredCache(l1, l2 Cache) *LayeredCache {
	return &LayeredCache{
		l1: l1,
		l2: l2,
	}
}

// Get retrieves a value from cache (L1 → L2 → miss). An L2 hit backfills
// L1 with a short TTL.
func (lc *LayeredCache) Get(ctx context.Context, key string) (interface{}, error) {
	if lc.l1 != nil {
		if val, err := lc.l1.Get(ctx, key); err == nil {
			return val, nil
		}
	}

	if lc.l2 != nil {
		val, err := lc.l2.Get(ctx, key)
		if err == nil {
			if lc.l1 != nil {
				_ = lc.l1.Set(ctx, key, val, maxL1TTL)
			}
			return val, nil
		}
	}

	return nil, ErrNotFound
}

// Set stores a value in both tiers (write-through).
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1TTL := ttl
		if ttl > maxL1TTL {
			l1TTL = maxL1TTL
		}
		l1Err = lc.l1.Set(ctx, key, value, l1TTL)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Set(ctx, key, value, ttl)
	}

	// Only fail when both tiers failed; a healthy tier keeps serving.
	if l1Err != nil && l2Err != nil {
		return l2Err
	}

	return nil
}

// Delete removes a key from both tiers.
func (lc *LayeredCache) Delete(ctx context.Context, key string) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Delete(ctx, key)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Delete(ctx, key)
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}

// Close closes both tiers.
func (lc *LayeredCache) Close() error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Close()
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Close()
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}
