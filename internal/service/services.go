// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the blog engine: the publishing state machine,
// the post query engine, comment moderation, view counting and the cached
// popular posts ranking. Every operation takes the requesting actor
// explicitly and returns *Error for rejected requests.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// Deps are the collaborators shared by the blog services.
type Deps struct {
	Store   *store.Store
	Cache   cache.Cache
	Events  events.Publisher
	Options Options
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Services groups the blog services built from one set of dependencies.
type Services struct {
	Posts    *PostService
	Comments *CommentService
	Taxonomy *TaxonomyService
	Popular  *PopularService
	Views    *ViewCounter
}

// New builds all services. A nil Cache gets an in-memory cache and nil
// Events a log publisher.
func New(d Deps) *Services {
	if d.Cache == nil {
		d.Cache = cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: d.Options.PopularTTL})
	}
	if d.Events == nil {
		d.Events = events.NewLogPublisher(nil)
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}

	b := &base{
		store:  d.Store,
		events: d.Events,
		opts:   d.Options.withDefaults(),
		clock:  d.Clock,
	}

	views := &ViewCounter{store: d.Store}
	popular := newPopularService(b, d.Cache)
	return &Services{
		Posts:    &PostService{base: b, views: views, popular: popular},
		Comments: &CommentService{base: b},
		Taxonomy: &TaxonomyService{base: b, popular: popular},
		Popular:  popular,
		Views:    views,
	}
}

type base struct {
	store  *store.Store
	events events.Publisher
	opts   Options
	clock  func() time.Time
}

func (b *base) now() time.Time {
	return b.clock().UTC()
}

// publish delivers events after the write committed. Delivery failures are
// logged; the write itself already succeeded.
func (b *base) publish(ctx context.Context, evs ...events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := b.events.Publish(ctx, evs...); err != nil {
		slog.WarnContext(ctx, "failed to publish events", "count", len(evs), "error", err)
	}
}

// ensureUser upserts the actor's reference record inside the caller's
// transaction so authored rows always reference an existing user.
func ensureUser(ctx context.Context, q *store.Queries, actor model.Actor, now time.Time) error {
	_, err := q.UpsertUser(ctx, store.UpsertUserParams{
		ID:          actor.ID,
		Username:    displayName(actor),
		IsSuperuser: actor.IsSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("syncing user %d: %w", actor.ID, err)
	}
	return nil
}

// displayName is the username recorded for actor. Identity providers that
// omit usernames get a stable placeholder.
func displayName(actor model.Actor) string {
	if actor.Username != "" {
		return actor.Username
	}
	return fmt.Sprintf("user-%d", actor.ID)
}
