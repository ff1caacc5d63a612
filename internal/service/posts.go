// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// PostService creates, edits, reads and deletes posts.
type PostService struct {
	*base
	views   *ViewCounter
	popular *PopularService
}

// PostDetail is a single post with its resolved names and the comments the
// requester may see.
type PostDetail struct {
	model.Post
	AuthorName   string          `json:"author_name"`
	CategoryName string          `json:"category_name,omitempty"`
	Comments     []model.Comment `json:"comments"`
}

// ReadOption customizes GetPost.
type ReadOption func(*readOptions)

type readOptions struct {
	countView bool
}

// WithoutViewCount marks a read as non-qualifying, e.g. one made by a crawler.
func WithoutViewCount() ReadOption {
	return func(o *readOptions) { o.countView = false }
}

// GetPost returns the post with the given slug. Drafts the requester may not
// see are reported as not found. A qualifying read of a published post
// increments its view count and the detail carries the new count.
func (s *PostService) GetPost(ctx context.Context, slug string, actor model.Actor, opts ...ReadOption) (*PostDetail, error) {
	ro := readOptions{countView: true}
	for _, opt := range opts {
		opt(&ro)
	}

	var p store.Post
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		p, err = q.GetPostBySlug(ctx, slug)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !CanViewPost(actor, p)) {
		return nil, notFound("post")
	}
	if err != nil {
		return nil, fmt.Errorf("loading post %q: %w", slug, err)
	}

	detail, err := s.loadDetail(ctx, p, actor)
	if err != nil {
		return nil, err
	}

	if ro.countView && p.Status == model.PostStatusPublished {
		if views, ok := s.views.Record(ctx, p.ID); ok {
			detail.Views = views
		}
	}
	return detail, nil
}

func (s *PostService) loadDetail(ctx context.Context, p store.Post, actor model.Actor) (*PostDetail, error) {
	detail := &PostDetail{}
	err := s.store.Do(ctx, func(q *store.Queries) error {
		tags, err := q.GetTagNamesForPosts(ctx, []int64{p.ID})
		if err != nil {
			return fmt.Errorf("loading tags: %w", err)
		}
		detail.Post = toPost(p, tags[p.ID])

		author, err := q.GetUserByID(ctx, p.AuthorID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("loading author: %w", err)
		}
		detail.AuthorName = author.Username

		if p.CategoryID.Valid {
			cat, err := q.GetCategoryByID(ctx, p.CategoryID.Int64)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("loading category: %w", err)
			}
			detail.CategoryName = cat.Name
		}

		comments, err := visibleComments(ctx, q, p.ID, actor)
		if err != nil {
			return fmt.Errorf("loading comments: %w", err)
		}
		detail.Comments = toComments(comments)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading post %d: %w", p.ID, err)
	}
	return detail, nil
}

// CreatePost stores a new post authored by actor. The slug is derived from
// the title when not given; a slug already used by another post is a conflict.
func (s *PostService) CreatePost(ctx context.Context, in PostInput, actor model.Actor) (*model.Post, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var created store.Post
	var tags []string
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		if err := ensureUser(ctx, q, actor, now); err != nil {
			return err
		}
		if err := checkCategory(ctx, q, in.CategoryID); err != nil {
			return err
		}

		p, err := q.CreatePost(ctx, store.CreatePostParams{
			Title:         in.Title,
			Slug:          in.Slug,
			AuthorID:      actor.ID,
			CategoryID:    util.NullInt64FromPtr(in.CategoryID),
			Content:       in.Content,
			Excerpt:       in.Excerpt,
			FeaturedImage: in.FeaturedImage,
			Status:        in.Status,
			CreatedAt:     now,
			UpdatedAt:     now,
			PublishedAt:   util.NullTimeFromPtr(PublishedAtFor(nil, in.Status, now)),
			ScheduledAt:   util.NullTimeFromPtr(in.ScheduledAt),
		})
		if err != nil {
			return translateWriteError(err)
		}
		created = p

		tags, err = setPostTags(ctx, q, p.ID, in.Tags)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "post created", "post_id", created.ID, "slug", created.Slug, "status", created.Status)
	evs := []events.Event{postEvent(model.EventPostCreated, actor.ID, created.ID)}
	if created.Status == model.PostStatusPublished {
		evs = append(evs, postEvent(model.EventPostPublished, actor.ID, created.ID))
		s.popular.Invalidate(ctx)
	}
	s.publish(ctx, evs...)

	post := toPost(created, tags)
	return &post, nil
}

// UpdatePost applies patch to the post with the given id. Only the author or
// a superuser may update; status changes go through the publishing rules.
func (s *PostService) UpdatePost(ctx context.Context, id int64, patch PostPatch, actor model.Actor) (*model.Post, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		before     store.Post
		updated    store.Post
		tags       []string
		transition Transition
	)
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		cur, err := q.GetPostByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("post")
		}
		if err != nil {
			return fmt.Errorf("loading post %d: %w", id, err)
		}
		if !CanMutate(actor, cur.AuthorID) {
			return forbidden("only the author or a superuser may modify this post")
		}
		before = cur

		curTags, err := q.GetTagNamesForPosts(ctx, []int64{id})
		if err != nil {
			return fmt.Errorf("loading tags: %w", err)
		}

		in := patch.apply(inputFromPost(cur, curTags[id]))
		if in.Status == model.PostStatusPublished && patch.ScheduledAt == nil {
			in.ScheduledAt = nil
		}
		in.normalize()
		if err := in.validate(); err != nil {
			return err
		}
		if transition, err = NextStatus(cur.Status, in.Status); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if err := checkCategory(ctx, q, in.CategoryID); err != nil {
				return err
			}
		}
		if err := ensureUser(ctx, q, actor, now); err != nil {
			return err
		}

		updated, err = q.UpdatePost(ctx, store.UpdatePostParams{
			Title:         in.Title,
			Slug:          in.Slug,
			CategoryID:    util.NullInt64FromPtr(in.CategoryID),
			Content:       in.Content,
			Excerpt:       in.Excerpt,
			FeaturedImage: in.FeaturedImage,
			Status:        in.Status,
			PublishTime:   now,
			ScheduledAt:   util.NullTimeFromPtr(in.ScheduledAt),
			UpdatedAt:     now,
			ID:            id,
		})
		if err != nil {
			return translateWriteError(err)
		}

		if patch.Tags != nil {
			tags, err = setPostTags(ctx, q, id, in.Tags)
			return err
		}
		tags = curTags[id]
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch transition {
	case TransitionPublish:
		slog.InfoContext(ctx, "post published", "post_id", id, "published_at", updated.PublishedAt.Time)
		s.publish(ctx, postEvent(model.EventPostPublished, actor.ID, id))
	case TransitionUnpublish:
		slog.InfoContext(ctx, "post unpublished", "post_id", id)
		s.publish(ctx, postEvent(model.EventPostUnpublished, actor.ID, id))
	}
	if before.Status == model.PostStatusPublished || updated.Status == model.PostStatusPublished {
		s.popular.Invalidate(ctx)
	}

	post := toPost(updated, tags)
	return &post, nil
}

// DeletePost removes the post with the given id together with its comments
// and tag memberships.
func (s *PostService) DeletePost(ctx context.Context, id int64, actor model.Actor) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}

	var deleted store.Post
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		cur, err := q.GetPostByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("post")
		}
		if err != nil {
			return fmt.Errorf("loading post %d: %w", id, err)
		}
		if !CanMutate(actor, cur.AuthorID) {
			return forbidden("only the author or a superuser may delete this post")
		}
		deleted = cur

		if err := q.DeleteCommentsForPost(ctx, id); err != nil {
			return fmt.Errorf("deleting comments: %w", err)
		}
		if err := q.ClearPostTags(ctx, id); err != nil {
			return fmt.Errorf("deleting tag memberships: %w", err)
		}
		if _, err := q.DeletePost(ctx, id); err != nil {
			return fmt.Errorf("deleting post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "post deleted", "post_id", id, "slug", deleted.Slug)
	s.publish(ctx, postEvent(model.EventPostDeleted, actor.ID, id))
	if deleted.Status == model.PostStatusPublished {
		s.popular.Invalidate(ctx)
	}
	return nil
}

// PublishDue publishes every draft whose scheduled time has passed and
// returns how many were published. Each post is published on its own so one
// failure does not hold back the rest.
func (s *PostService) PublishDue(ctx context.Context) (int, error) {
	now := s.now()

	var due []store.Post
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		due, err = q.ListDueScheduledPosts(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("listing scheduled posts: %w", err)
	}

	published := 0
	for _, p := range due {
		var n int64
		err := s.store.Do(ctx, func(q *store.Queries) error {
			var err error
			n, err = q.PublishScheduledPost(ctx, store.PublishScheduledPostParams{PublishTime: now, ID: p.ID})
			return err
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to publish scheduled post", "post_id", p.ID, "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		published++
		slog.InfoContext(ctx, "scheduled post published", "post_id", p.ID, "slug", p.Slug)
		s.publish(ctx, postEvent(model.EventPostPublished, p.AuthorID, p.ID))
	}

	if published > 0 {
		s.popular.Invalidate(ctx)
	}
	return published, nil
}

func inputFromPost(p store.Post, tags []string) PostInput {
	return PostInput{
		Title:         p.Title,
		Slug:          p.Slug,
		CategoryID:    util.PtrFromNullInt64(p.CategoryID),
		Tags:          tags,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		FeaturedImage: p.FeaturedImage,
		Status:        p.Status,
		ScheduledAt:   util.PtrFromNullTime(p.ScheduledAt),
	}
}

func checkCategory(ctx context.Context, q *store.Queries, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := q.GetCategoryByID(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return fieldError("category_id", "unknown category")
	}
	if err != nil {
		return fmt.Errorf("loading category %d: %w", *id, err)
	}
	return nil
}

// setPostTags replaces the post's tag set, creating missing tags by name.
func setPostTags(ctx context.Context, q *store.Queries, postID int64, names []string) ([]string, error) {
	if err := q.ClearPostTags(ctx, postID); err != nil {
		return nil, fmt.Errorf("clearing tags: %w", err)
	}
	for _, name := range names {
		tag, err := q.EnsureTag(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("creating tag %q: %w", name, err)
		}
		if err := q.AddTagToPost(ctx, store.AddTagToPostParams{PostID: postID, TagID: tag.ID}); err != nil {
			return nil, fmt.Errorf("tagging post: %w", err)
		}
	}
	out := slices.Clone(names)
	slices.Sort(out)
	return out, nil
}

// translateWriteError maps uniqueness violations to a conflict.
func translateWriteError(err error) error {
	if store.IsUniqueViolation(err) {
		field := store.UniqueViolationColumn(err)
		return conflict(field, field+" is already in use")
	}
	return fmt.Errorf("writing post: %w", err)
}

func postEvent(eventType string, actorID, postID int64) events.Event {
	e := events.New(eventType, actorID)
	e.PostID = postID
	return e
}
