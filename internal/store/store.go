// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the retries of transient SQLite failures.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries a locked database a few times with jittered backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		Base:       10 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.Base)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// Store owns the database handle and runs queries under the retry policy.
type Store struct {
	*Queries
	db     *sql.DB
	policy RetryPolicy
}

// NewStore creates a Store using the default retry policy.
func NewStore(db *sql.DB) *Store {
	return NewStoreWithPolicy(db, DefaultRetryPolicy())
}

// NewStoreWithPolicy creates a Store with a custom retry policy.
func NewStoreWithPolicy(db *sql.DB, policy RetryPolicy) *Store {
	return &Store{
		Queries: New(db),
		db:      db,
		policy:  policy,
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Do runs fn against the pooled connection, retrying transient failures.
func (s *Store) Do(ctx context.Context, fn func(q *Queries) error) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		return fn(s.Queries)
	})
}

// ExecTx runs fn inside a transaction. The transaction commits if fn returns
// nil and rolls back otherwise; the whole transaction is retried on transient
// failures so no partial writes are ever visible.
func (s *Store) ExecTx(ctx context.Context, fn func(q *Queries) error) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}

		if err := fn(s.Queries.WithTx(tx)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return errors.Join(err, rbErr)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

func (s *Store) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.policy.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsTransient reports whether err is a lock contention error worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
// Both modernc.org/sqlite and mattn/go-sqlite3 use SQLite's message text.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UniqueViolationColumn returns the column named in a UNIQUE constraint
// failure, e.g. "slug" for "UNIQUE constraint failed: posts.slug".
func UniqueViolationColumn(err error) string {
	if !IsUniqueViolation(err) {
		return ""
	}
	msg := err.Error()
	idx := strings.Index(msg, "UNIQUE constraint failed: ")
	rest := msg[idx+len("UNIQUE constraint failed: "):]
	if end := strings.IndexAny(rest, " ,("); end >= 0 {
		rest = rest[:end]
	}
	if dot := strings.LastIndexByte(rest, '.'); dot >= 0 {
		rest = rest[dot+1:]
	}
	return rest
}
