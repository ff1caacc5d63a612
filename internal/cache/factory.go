// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend names the cache implementation in use.
type Backend string

// Cache backends.
const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string

	// Prefix namespaces Redis keys.
	Prefix string

	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited)
	MaxSize int

	CleanupInterval time.Duration

	// FallbackToMemory uses a memory cache when Redis is unreachable.
	FallbackToMemory bool
}

// Result is a constructed cache plus a description of how it was chosen.
type Result struct {
	Cache      Cache
	Backend    Backend
	IsFallback bool
}

// NewCache builds a Redis cache when RedisURL is set and a memory cache
// otherwise. A failed Redis connection is an error unless FallbackToMemory
// is enabled.
func NewCache(cfg Config) (Result, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			slog.Info("cache backend ready", "backend", BackendRedis, "url", SanitizeRedisURL(cfg.RedisURL))
			return Result{Cache: rc, Backend: BackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return Result{}, fmt.Errorf("connecting to redis at %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		slog.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return Result{Cache: newMemoryFromConfig(cfg), Backend: BackendMemory, IsFallback: true}, nil
	}

	return Result{Cache: newMemoryFromConfig(cfg), Backend: BackendMemory}, nil
}

func newMemoryFromConfig(cfg Config) *MemoryCache {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: interval,
	})
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
