// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// TaxonomyService manages categories and tags.
type TaxonomyService struct {
	*base
	popular *PopularService
}

// Category is a category with the number of published posts in it.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	PostCount   int64     `json:"post_count"`
}

// Tag is a tag with the number of published posts carrying it.
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PostCount int64  `json:"post_count"`
}

// ListCategories returns all categories ordered by name.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]Category, error) {
	var rows []store.ListCategoriesWithCountsRow
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		rows, err = q.ListCategoriesWithCounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	out := make([]Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, Category{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			CreatedAt:   r.CreatedAt.UTC(),
			PostCount:   r.PostCount,
		})
	}
	return out, nil
}

// GetCategory returns a single category.
func (s *TaxonomyService) GetCategory(ctx context.Context, id int64) (*Category, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].ID == id {
			return &cats[i], nil
		}
	}
	return nil, notFound("category")
}

// CreateCategory adds a category. Names are unique.
func (s *TaxonomyService) CreateCategory(ctx context.Context, in CategoryInput, actor model.Actor) (*Category, error) {
	if !actor.Privileged() {
		return nil, forbidden("only superusers may manage categories")
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var c store.Category
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.CreateCategory(ctx, store.CreateCategoryParams{
			Name:        in.Name,
			Description: in.Description,
			CreatedAt:   s.now(),
		})
		return err
	})
	if err != nil {
		return nil, categoryWriteError(err)
	}

	slog.InfoContext(ctx, "category created", "category_id", c.ID, "name", c.Name)
	return &Category{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt.UTC()}, nil
}

// UpdateCategory replaces the name and description of a category.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, id int64, in CategoryInput, actor model.Actor) (*Category, error) {
	if !actor.Privileged() {
		return nil, forbidden("only superusers may manage categories")
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.store.Do(ctx, func(q *store.Queries) error {
		_, err := q.UpdateCategory(ctx, store.UpdateCategoryParams{
			Name:        in.Name,
			Description: in.Description,
			ID:          id,
		})
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("category")
	}
	if err != nil {
		return nil, categoryWriteError(err)
	}

	slog.InfoContext(ctx, "category updated", "category_id", id)
	s.popular.Invalidate(ctx)
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category. Its posts become uncategorized.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id int64, actor model.Actor) error {
	if !actor.Privileged() {
		return forbidden("only superusers may manage categories")
	}

	var cleared int64
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		var err error
		if cleared, err = q.ClearPostsCategory(ctx, id); err != nil {
			return fmt.Errorf("detaching posts: %w", err)
		}
		n, err := q.DeleteCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("deleting category %d: %w", id, err)
		}
		if n == 0 {
			return notFound("category")
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "category deleted", "category_id", id, "posts_detached", cleared)
	if cleared > 0 {
		s.popular.Invalidate(ctx)
	}
	return nil
}

// ListTags returns all tags ordered by name.
func (s *TaxonomyService) ListTags(ctx context.Context) ([]Tag, error) {
	var rows []store.ListTagsWithCountsRow
	err := s.store.Do(ctx, func(q *store.Queries) error {
		var err error
		rows, err = q.ListTagsWithCounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	out := make([]Tag, 0, len(rows))
	for _, r := range rows {
		out = append(out, Tag(r))
	}
	return out, nil
}

// DeleteTag removes a tag from every post and then deletes it.
func (s *TaxonomyService) DeleteTag(ctx context.Context, id int64, actor model.Actor) error {
	if !actor.Privileged() {
		return forbidden("only superusers may manage tags")
	}

	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		if err := q.DeleteTagMemberships(ctx, id); err != nil {
			return fmt.Errorf("detaching tag: %w", err)
		}
		n, err := q.DeleteTag(ctx, id)
		if err != nil {
			return fmt.Errorf("deleting tag %d: %w", id, err)
		}
		if n == 0 {
			return notFound("tag")
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "tag deleted", "tag_id", id)
	s.popular.Invalidate(ctx)
	return nil
}

func categoryWriteError(err error) error {
	if store.IsUniqueViolation(err) {
		return conflict("name", "a category with this name already exists")
	}
	return fmt.Errorf("writing category: %w", err)
}
