// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Comment moderation states as exposed in API responses.
const (
	CommentStatePending  = "pending"
	CommentStateApproved = "approved"
)

// MaxCommentLength is the maximum comment length in runes.
const MaxCommentLength = 5000

// Comment is a reader comment on a post.
type Comment struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"post_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// State returns the moderation state of the comment.
func (c *Comment) State() string {
	if c.Approved {
		return CommentStateApproved
	}
	return CommentStatePending
}
