// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the server configuration from OBLOG_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OBLOG_DB_PATH" envDefault:"./data/oblog.db"`
	ServerHost string `env:"OBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OBLOG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OBLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"OBLOG_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"OBLOG_LOG_FORMAT" envDefault:"text"` // text or json

	// Query engine
	PageSize    int `env:"OBLOG_PAGE_SIZE" envDefault:"5"`
	MaxPageSize int `env:"OBLOG_MAX_PAGE_SIZE" envDefault:"50"`

	// Popular posts ranking
	PopularTTL   int `env:"OBLOG_POPULAR_TTL" envDefault:"300"` // seconds
	PopularLimit int `env:"OBLOG_POPULAR_LIMIT" envDefault:"5"`

	// Cache configuration
	RedisURL     string `env:"OBLOG_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OBLOG_CACHE_PREFIX" envDefault:"oblog:"`  // Redis key prefix
	CacheMaxSize int    `env:"OBLOG_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Identity
	JWTSecret            string `env:"OBLOG_JWT_SECRET"`
	TrustIdentityHeaders bool   `env:"OBLOG_TRUST_IDENTITY_HEADERS" envDefault:"false"`

	// Events
	KafkaBrokers []string `env:"OBLOG_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"OBLOG_KAFKA_TOPIC" envDefault:"oblog.events"`

	// API limits
	APIRateLimit   float64 `env:"OBLOG_API_RATE_LIMIT" envDefault:"20"` // requests per second per actor or IP
	APIRateBurst   int     `env:"OBLOG_API_RATE_BURST" envDefault:"40"`
	RequestTimeout int     `env:"OBLOG_REQUEST_TIMEOUT" envDefault:"30"` // seconds

	// Background jobs, standard five-field cron expressions
	PublishSchedule string `env:"OBLOG_PUBLISH_SCHEDULE" envDefault:"* * * * *"`
	PopularSchedule string `env:"OBLOG_POPULAR_SCHEDULE" envDefault:"* * * * *"`

	// Seeding configuration
	DoSeed bool `env:"OBLOG_DO_SEED" envDefault:"false"` // Seed demo content
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseKafka returns true if events should be published to Kafka.
func (c Config) UseKafka() bool {
	return len(c.KafkaBrokers) > 0
}

// UseJWT returns true if bearer tokens are accepted.
func (c Config) UseJWT() bool {
	return c.JWTSecret != ""
}

// PopularTTLDuration returns the popular posts cache TTL.
func (c Config) PopularTTLDuration() time.Duration {
	return time.Duration(c.PopularTTL) * time.Second
}

// RequestTimeoutDuration returns the per-request timeout.
func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinJWTSecretLength is the minimum required length for the JWT signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("OBLOG_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("OBLOG_PAGE_SIZE must be positive, got %d", c.PageSize))
	}
	if c.MaxPageSize < c.PageSize {
		errs = append(errs, fmt.Errorf("OBLOG_MAX_PAGE_SIZE (%d) must not be below OBLOG_PAGE_SIZE (%d)", c.MaxPageSize, c.PageSize))
	}
	if c.PopularTTL < 1 {
		errs = append(errs, fmt.Errorf("OBLOG_POPULAR_TTL must be positive, got %d", c.PopularTTL))
	}
	if c.PopularLimit < 1 {
		errs = append(errs, fmt.Errorf("OBLOG_POPULAR_LIMIT must be positive, got %d", c.PopularLimit))
	}
	if c.APIRateLimit <= 0 || c.APIRateBurst < 1 {
		errs = append(errs, errors.New("OBLOG_API_RATE_LIMIT and OBLOG_API_RATE_BURST must be positive"))
	}
	if c.RequestTimeout < 1 {
		errs = append(errs, fmt.Errorf("OBLOG_REQUEST_TIMEOUT must be positive, got %d", c.RequestTimeout))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("OBLOG_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if _, err := cron.ParseStandard(c.PublishSchedule); err != nil {
		errs = append(errs, fmt.Errorf("OBLOG_PUBLISH_SCHEDULE: %w", err))
	}
	if _, err := cron.ParseStandard(c.PopularSchedule); err != nil {
		errs = append(errs, fmt.Errorf("OBLOG_POPULAR_SCHEDULE: %w", err))
	}

	if c.UseJWT() {
		if err := checkSecret(c.JWTSecret); err != nil {
			errs = append(errs, err)
		}
	}
	if !c.IsDevelopment() && !c.UseJWT() && !c.TrustIdentityHeaders {
		errs = append(errs, errors.New("an identity source is required outside development: "+
			"set OBLOG_JWT_SECRET or OBLOG_TRUST_IDENTITY_HEADERS"))
	}

	return errors.Join(errs...)
}

func checkSecret(secret string) error {
	if len(secret) < MinJWTSecretLength {
		return fmt.Errorf("OBLOG_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(secret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if secret == weak {
			return errors.New("OBLOG_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(secret) {
		slog.Warn("OBLOG_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
