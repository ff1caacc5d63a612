// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// TypedCache stores JSON-encoded values of type T in a Cache.
type TypedCache[T any] struct {
	cache      Cache
	defaultTTL time.Duration
}

// NewTypedCache creates a new TypedCache wrapping the given cache implementation.
func NewTypedCache[T any](cache Cache, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached value and true, or the zero value and false on a
// miss or an undecodable entry.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("cache get failed", "key", key, "error", err)
		}
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return value, false
	}
	return value, true
}

// Set stores value under key. A zero ttl uses the typed cache default.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.cache.Set(ctx, key, data, ttl)
}

// Delete removes a key from the cache.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// GetOrCompute returns the cached value for key, or calls compute on a miss
// and stores its result for ttl. compute runs synchronously in the caller;
// concurrent misses may each compute. A failed store is logged and the
// computed value is still returned.
func (c *TypedCache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
	return value, nil
}
