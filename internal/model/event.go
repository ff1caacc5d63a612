// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Domain event types.
const (
	EventPostCreated      = "post.created"
	EventPostPublished    = "post.published"
	EventPostUnpublished  = "post.unpublished"
	EventPostDeleted      = "post.deleted"
	EventCommentSubmitted = "comment.submitted"
	EventCommentModerated = "comment.moderated"
)
