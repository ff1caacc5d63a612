// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default seed data.
const (
	DefaultCategoryName        = "General"
	DefaultCategoryDescription = "Posts without a more specific topic"

	DemoAuthorID   = 1
	DemoAuthorName = "editor"
)

// Seed creates initial data in the database. The default category is always
// ensured; demo content is only created when demo is true.
func Seed(ctx context.Context, db *sql.DB, demo bool) error {
	queries := New(db)

	_, err := queries.GetCategoryByName(ctx, DefaultCategoryName)
	switch {
	case err == nil:
		slog.Debug("default category already exists, skipping")
	case errors.Is(err, sql.ErrNoRows):
		cat, err := queries.CreateCategory(ctx, CreateCategoryParams{
			Name:        DefaultCategoryName,
			Description: DefaultCategoryDescription,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("creating default category: %w", err)
		}
		slog.Info("created default category", "id", cat.ID, "name", cat.Name)
	default:
		return fmt.Errorf("checking for default category: %w", err)
	}

	if !demo {
		return nil
	}
	return seedDemo(ctx, queries)
}

var demoPosts = []struct {
	title   string
	slug    string
	content string
	tags    []string
}{
	{"Welcome to oBlog", "welcome", "This is the first post. Edit or delete it, then start writing.", []string{"news"}},
	{"Writing drafts", "writing-drafts", "Posts start as drafts and are only listed once published.", []string{"guide"}},
	{"Moderating comments", "moderating-comments", "Reader comments stay pending until a moderator approves them.", []string{"guide", "comments"}},
}

func seedDemo(ctx context.Context, q *Queries) error {
	if _, err := q.GetPostBySlug(ctx, demoPosts[0].slug); err == nil {
		slog.Info("demo content already exists, skipping seed")
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for demo content: %w", err)
	}

	now := time.Now().UTC()
	if _, err := q.UpsertUser(ctx, UpsertUserParams{
		ID:        DemoAuthorID,
		Username:  DemoAuthorName,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("creating demo author: %w", err)
	}

	cat, err := q.GetCategoryByName(ctx, DefaultCategoryName)
	if err != nil {
		return fmt.Errorf("loading default category: %w", err)
	}

	for i, dp := range demoPosts {
		created := now.Add(time.Duration(i) * time.Second)
		post, err := q.CreatePost(ctx, CreatePostParams{
			Title:       dp.title,
			Slug:        dp.slug,
			AuthorID:    DemoAuthorID,
			CategoryID:  sql.NullInt64{Int64: cat.ID, Valid: true},
			Content:     dp.content,
			Status:      "published",
			CreatedAt:   created,
			UpdatedAt:   created,
			PublishedAt: sql.NullTime{Time: created, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("creating demo post %q: %w", dp.slug, err)
		}
		for _, name := range dp.tags {
			tag, err := q.EnsureTag(ctx, name)
			if err != nil {
				return fmt.Errorf("creating demo tag %q: %w", name, err)
			}
			if err := q.AddTagToPost(ctx, AddTagToPostParams{PostID: post.ID, TagID: tag.ID}); err != nil {
				return fmt.Errorf("tagging demo post %q: %w", dp.slug, err)
			}
		}
	}

	slog.Info("seeded demo content", "posts", len(demoPosts))
	return nil
}
