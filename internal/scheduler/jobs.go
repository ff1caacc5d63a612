// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
)

// Job names.
const (
	JobPublishScheduled = "publish-scheduled-posts"
	JobRefreshPopular   = "refresh-popular-posts"
)

// DuePublisher publishes drafts whose scheduled time has passed.
type DuePublisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// PopularRefresher recomputes the cached popular posts ranking.
type PopularRefresher interface {
	Refresh(ctx context.Context) error
}

// PublishScheduledJob publishes due drafts.
func PublishScheduledJob(schedule string, posts DuePublisher) Job {
	return Job{
		Name:        JobPublishScheduled,
		Description: "Publish drafts whose scheduled time has passed",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := posts.PublishDue(ctx)
			if n > 0 {
				slog.InfoContext(ctx, "published scheduled posts", "count", n)
			}
			if err != nil {
				return fmt.Errorf("publishing scheduled posts: %w", err)
			}
			return nil
		},
	}
}

// RefreshPopularJob recomputes the popular posts ranking so view counts
// accumulated since the last write show up within one period.
func RefreshPopularJob(schedule string, popular PopularRefresher) Job {
	return Job{
		Name:        JobRefreshPopular,
		Description: "Recompute the popular posts ranking",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			if err := popular.Refresh(ctx); err != nil {
				return fmt.Errorf("refreshing popular posts: %w", err)
			}
			return nil
		},
	}
}
