// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// CommentService handles comment submission, visibility and moderation.
type CommentService struct {
	*base
}

// ModerationResult reports the outcome of a bulk moderation request. Both
// lists keep the order of the request.
type ModerationResult struct {
	Updated  []int64 `json:"updated"`
	NotFound []int64 `json:"not_found"`
}

// SubmitComment stores a new pending comment on a published post.
func (s *CommentService) SubmitComment(ctx context.Context, postID int64, in CommentInput, actor model.Actor) (*model.Comment, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	var created store.Comment
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		p, err := q.GetPostByID(ctx, postID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !CanViewPost(actor, p)) {
			return notFound("post")
		}
		if err != nil {
			return fmt.Errorf("loading post %d: %w", postID, err)
		}
		if p.Status != model.PostStatusPublished {
			return invalidState("comments can only be added to published posts")
		}
		if err := ensureUser(ctx, q, actor, now); err != nil {
			return err
		}

		created, err = q.CreateComment(ctx, store.CreateCommentParams{
			PostID:    postID,
			AuthorID:  actor.ID,
			Content:   in.Content,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "comment submitted", "comment_id", created.ID, "post_id", postID)
	ev := events.New(model.EventCommentSubmitted, actor.ID)
	ev.PostID = postID
	ev.CommentID = created.ID
	s.publish(ctx, ev)

	c := toComment(store.CommentRow{Comment: created, AuthorName: displayName(actor)})
	return &c, nil
}

// ModerateComments sets the approval flag on every listed comment. Unknown
// ids are reported and do not prevent the others from being updated.
// Repeating the current state is not an error.
func (s *CommentService) ModerateComments(ctx context.Context, in ModerationInput, actor model.Actor) (*ModerationResult, error) {
	if !CanModerate(actor) {
		return nil, forbidden("only superusers may moderate comments")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	ids := dedupeIDs(in.IDs)
	res := &ModerationResult{Updated: []int64{}, NotFound: []int64{}}
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		res.Updated, res.NotFound = res.Updated[:0], res.NotFound[:0]
		for _, id := range ids {
			n, err := q.SetCommentApproved(ctx, store.SetCommentApprovedParams{Approved: in.Approve, ID: id})
			if err != nil {
				return fmt.Errorf("moderating comment %d: %w", id, err)
			}
			if n == 0 {
				res.NotFound = append(res.NotFound, id)
				continue
			}
			res.Updated = append(res.Updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "comments moderated", "approve", in.Approve, "updated", len(res.Updated), "not_found", len(res.NotFound))
	evs := make([]events.Event, 0, len(res.Updated))
	for _, id := range res.Updated {
		ev := events.New(model.EventCommentModerated, actor.ID)
		ev.CommentID = id
		ev.Data = map[string]any{"approved": in.Approve}
		evs = append(evs, ev)
	}
	s.publish(ctx, evs...)
	return res, nil
}

// ListVisibleComments returns the comments of a post the requester may see:
// approved comments, their own pending ones, or all of them for superusers.
func (s *CommentService) ListVisibleComments(ctx context.Context, postID int64, actor model.Actor) ([]model.Comment, error) {
	var rows []store.CommentRow
	err := s.store.Do(ctx, func(q *store.Queries) error {
		p, err := q.GetPostByID(ctx, postID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !CanViewPost(actor, p)) {
			return notFound("post")
		}
		if err != nil {
			return fmt.Errorf("loading post %d: %w", postID, err)
		}
		rows, err = visibleComments(ctx, q, postID, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toComments(rows), nil
}

// ListMyComments returns every comment written by the requester regardless
// of approval, newest first.
func (s *CommentService) ListMyComments(ctx context.Context, actor model.Actor) ([]model.Comment, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	var rows []store.CommentRow
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		rows, err = q.ListCommentsByAuthor(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments of user %d: %w", actor.ID, err)
	}
	return toComments(rows), nil
}

// ListPendingComments returns one page of the moderation queue, oldest first.
func (s *CommentService) ListPendingComments(ctx context.Context, req PageRequest, actor model.Actor) (Page[model.Comment], error) {
	if !CanModerate(actor) {
		return Page[model.Comment]{}, forbidden("only superusers may view the moderation queue")
	}
	page, perPage := req.normalize(s.opts)

	var (
		total int64
		rows  []store.CommentRow
	)
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		if total, err = q.CountPendingComments(ctx); err != nil {
			return err
		}
		rows, err = q.ListPendingComments(ctx, store.ListPendingCommentsParams{
			Limit:  int64(perPage),
			Offset: int64(page-1) * int64(perPage),
		})
		return err
	})
	if err != nil {
		return Page[model.Comment]{}, fmt.Errorf("listing pending comments: %w", err)
	}
	return newPage(toComments(rows), page, perPage, total), nil
}

// DeleteComment removes a single comment.
func (s *CommentService) DeleteComment(ctx context.Context, id int64, actor model.Actor) error {
	if !CanModerate(actor) {
		return forbidden("only superusers may delete comments")
	}
	var n int64
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		n, err = q.DeleteComment(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting comment %d: %w", id, err)
	}
	if n == 0 {
		return notFound("comment")
	}
	slog.InfoContext(ctx, "comment deleted", "comment_id", id)
	return nil
}

func visibleComments(ctx context.Context, q *store.Queries, postID int64, actor model.Actor) ([]store.CommentRow, error) {
	if actor.Privileged() {
		return q.ListAllCommentsForPost(ctx, postID)
	}
	params := store.ListVisibleCommentsForPostParams{PostID: postID}
	if actor.Known() {
		params.ViewerID = actor.ID
	}
	return q.ListVisibleCommentsForPost(ctx, params)
}
