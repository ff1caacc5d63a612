// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/olegiv/oblog/internal/store"
)

// ViewCounter records qualifying reads of published posts.
type ViewCounter struct {
	store *store.Store
}

// Record increments the view count of a published post by exactly one and
// returns the new count. Reads of drafts or missing posts are not counted.
// Store failures are logged and reported as not counted; a reader never
// sees them.
func (v *ViewCounter) Record(ctx context.Context, postID int64) (int64, bool) {
	var views int64
	err := v.store.Do(ctx, func(q *store.Queries) error {
		var err error
		views, err = q.IncrementPostViews(ctx, postID)
		return err
	})
	switch {
	case err == nil:
		return views, true
	case errors.Is(err, sql.ErrNoRows):
		return 0, false
	default:
		slog.WarnContext(ctx, "failed to record post view", "post_id", postID, "error", err)
		return 0, false
	}
}
