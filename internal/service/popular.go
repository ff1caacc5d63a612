// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/store"
)

const popularKeyPrefix = "posts:popular:"

// PopularService serves the most viewed published posts. The ranking is
// computed from the live view counter and cached for the configured TTL,
// so it may lag recent views by at most that long.
type PopularService struct {
	*base
	raw   cache.Cache
	cache *cache.TypedCache[[]PostSummary]
}

func newPopularService(b *base, c cache.Cache) *PopularService {
	return &PopularService{
		base:  b,
		raw:   c,
		cache: cache.NewTypedCache[[]PostSummary](c, b.opts.PopularTTL),
	}
}

func popularKey(n int) string {
	return fmt.Sprintf("%s%d", popularKeyPrefix, n)
}

func (s *PopularService) limit(n int) int {
	if n <= 0 {
		n = s.opts.PopularLimit
	}
	return min(n, s.opts.MaxPageSize)
}

// Top returns up to n published posts ordered by views, then by id. A
// non-positive n uses the configured default.
func (s *PopularService) Top(ctx context.Context, n int) ([]PostSummary, error) {
	n = s.limit(n)
	return s.cache.GetOrCompute(ctx, popularKey(n), s.opts.PopularTTL, func(ctx context.Context) ([]PostSummary, error) {
		return s.compute(ctx, n)
	})
}

// Refresh recomputes the default ranking and stores it, replacing any
// cached value. Refresh keeps readers from ever hitting a cold cache.
func (s *PopularService) Refresh(ctx context.Context) error {
	n := s.limit(0)
	top, err := s.compute(ctx, n)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, popularKey(n), top, s.opts.PopularTTL); err != nil {
		return fmt.Errorf("caching popular posts: %w", err)
	}
	return nil
}

// Invalidate drops every cached ranking. Failures are logged; the entries
// still expire on their TTL.
func (s *PopularService) Invalidate(ctx context.Context) {
	var err error
	if pd, ok := s.raw.(cache.PrefixDeleter); ok {
		err = pd.DeleteByPrefix(ctx, popularKeyPrefix)
	} else {
		err = s.raw.Delete(ctx, popularKey(s.limit(0)))
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to invalidate popular posts", "error", err)
	}
}

func (s *PopularService) compute(ctx context.Context, n int) ([]PostSummary, error) {
	var (
		rows []store.PostListRow
		tags map[int64][]string
	)
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		if rows, err = q.ListTopPosts(ctx, int64(n)); err != nil {
			return err
		}
		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		tags, err = q.GetTagNamesForPosts(ctx, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("computing popular posts: %w", err)
	}

	out := make([]PostSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSummary(r, tags[r.ID], false))
	}
	return out, nil
}
