// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Post statuses
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// ValidPostStatus returns true if s is a known post status.
func ValidPostStatus(s string) bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Field limits for posts.
const (
	MaxTitleLength   = 200
	MaxSlugLength    = 200
	MaxExcerptLength = 500
	MaxTagNameLength = 50
	ListExcerptRunes = 200
)

// Post represents a blog post together with its resolved tag names.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	AuthorID      int64      `json:"author_id"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	Tags          []string   `json:"tags"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	Views         int64      `json:"views"`
}

// IsPublished returns true if the post is published.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// IsDraft returns true if the post is a draft.
func (p *Post) IsDraft() bool {
	return p.Status == PostStatusDraft
}
