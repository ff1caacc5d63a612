// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package events publishes domain events emitted after post and comment
// writes commit. Consumers (search indexers, notification senders) subscribe
// through the configured Publisher instead of hooking into the write path.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a single domain event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    int64          `json:"actor_id,omitempty"`
	PostID     int64          `json:"post_id,omitempty"`
	CommentID  int64          `json:"comment_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// New creates an event with a fresh id and the current UTC time.
func New(eventType string, actorID int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
	}
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is the default
// when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs each event at info level.
func (p *LogPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "domain event",
			"event_id", e.ID,
			"type", e.Type,
			"actor_id", e.ActorID,
			"post_id", e.PostID,
			"comment_id", e.CommentID,
		)
	}
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends events to the recorder.
func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.mu.Lock()
	r.events = append(r.events, events...)
	r.mu.Unlock()
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
)
