// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// ListFilters are the conjunctive predicates of a post listing. Zero values
// are not applied.
type ListFilters struct {
	Status     string
	CategoryID int64
	TagName    string
	FreeText   string
	AuthorID   int64
	// Mine restricts the listing to the requester's own posts of any status.
	Mine bool
	// IncludeContent adds the full content to each summary.
	IncludeContent bool
}

// PageRequest selects a 1-indexed page. Values below one fall back to the
// first page and the configured page size.
type PageRequest struct {
	Page    int
	PerPage int
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	PageCount  int   `json:"page_count"`
	TotalCount int64 `json:"total_count"`
}

// PostSummary is the listing-safe view of a post.
type PostSummary struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	AuthorID      int64      `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	CategoryName  string     `json:"category_name,omitempty"`
	Tags          []string   `json:"tags"`
	Excerpt       string     `json:"excerpt"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Views         int64      `json:"views"`
	Content       string     `json:"content,omitempty"`
}

func (r PageRequest) normalize(opts Options) (page, perPage int) {
	page, perPage = r.Page, r.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = opts.PageSize
	}
	if perPage > opts.MaxPageSize {
		perPage = opts.MaxPageSize
	}
	return page, perPage
}

func newPage[T any](items []T, page, perPage int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, PageCount: pages, TotalCount: total}
}

// scope resolves the status and author predicates the requester is allowed
// to see. Anonymous callers only ever see published posts.
func scope(f ListFilters, actor model.Actor) (store.PostFilter, error) {
	pf := store.PostFilter{
		Status:     f.Status,
		AuthorID:   f.AuthorID,
		CategoryID: f.CategoryID,
		TagName:    strings.ToLower(strings.TrimSpace(f.TagName)),
		Text:       strings.TrimSpace(f.FreeText),
	}
	if pf.Status != "" && !model.ValidPostStatus(pf.Status) {
		return pf, fieldError("status", "must be one of: draft, published")
	}

	if f.Mine {
		if !actor.Known() {
			return pf, forbidden("authentication required to list your posts")
		}
		if f.AuthorID != 0 && f.AuthorID != actor.ID {
			return pf, fieldError("author_id", "cannot be combined with mine")
		}
		pf.AuthorID = actor.ID
		return pf, nil
	}

	switch pf.Status {
	case "":
		pf.Status = model.PostStatusPublished
	case model.PostStatusDraft:
		switch {
		case !actor.Known():
			return pf, forbidden("authentication required to list drafts")
		case actor.Privileged():
		case f.AuthorID != 0 && f.AuthorID != actor.ID:
			return pf, forbidden("drafts of other authors are not visible")
		default:
			pf.AuthorID = actor.ID
		}
	}
	return pf, nil
}

// ListPosts returns one page of posts matching filters, newest first with
// ties broken by descending id. A page past the end is empty, not an error.
func (s *PostService) ListPosts(ctx context.Context, filters ListFilters, req PageRequest, actor model.Actor) (Page[PostSummary], error) {
	pf, err := scope(filters, actor)
	if err != nil {
		return Page[PostSummary]{}, err
	}
	page, perPage := req.normalize(s.opts)
	offset := int64(page-1) * int64(perPage)

	var (
		total int64
		rows  []store.PostListRow
		tags  map[int64][]string
	)
	// The count and the page share one transaction so both see the same rows.
	err = s.store.ExecTx(ctx, func(q *store.Queries) error {
		var err error
		if total, err = q.CountPostsFiltered(ctx, pf); err != nil {
			return fmt.Errorf("counting posts: %w", err)
		}
		if offset >= total {
			rows, tags = nil, nil
			return nil
		}
		if rows, err = q.ListPostsFiltered(ctx, pf, int64(perPage), offset); err != nil {
			return fmt.Errorf("listing posts: %w", err)
		}
		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		tags, err = q.GetTagNamesForPosts(ctx, ids)
		return err
	})
	if err != nil {
		return Page[PostSummary]{}, err
	}

	items := make([]PostSummary, 0, len(rows))
	for _, r := range rows {
		items = append(items, toSummary(r, tags[r.ID], filters.IncludeContent))
	}
	return newPage(items, page, perPage, total), nil
}
