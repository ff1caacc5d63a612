// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"

	"github.com/olegiv/oblog/internal/util"
)

// PostFilter holds the conjunctive predicates for listing posts.
// Zero-valued fields are not applied.
type PostFilter struct {
	Status     string
	AuthorID   int64
	CategoryID int64
	TagName    string
	Text       string
}

// likeEscaper escapes LIKE wildcards so the search term matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where builds the WHERE clause and its arguments. Status and category are
// plain column predicates served by idx_posts_status_created and
// idx_posts_category_id; the tag predicate is an EXISTS probe on post_tags.
// Free text matches the folded title or content columns.
func (f PostFilter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.AuthorID != 0 {
		clauses = append(clauses, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.CategoryID != 0 {
		clauses = append(clauses, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.TagName != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM post_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.name = ?)`)
		args = append(args, f.TagName)
	}
	if f.Text != "" {
		pattern := "%" + likeEscaper.Replace(util.FoldSearch(f.Text)) + "%"
		clauses = append(clauses, `(p.title_fold LIKE ? ESCAPE '\' OR p.content_fold LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListPostsFiltered returns one page of posts matching f, newest first with
// ties broken by descending id.
// Hand-written: the predicate set is composed at runtime.
func (q *Queries) ListPostsFiltered(ctx context.Context, f PostFilter, limit, offset int64) ([]PostListRow, error) {
	where, args := f.where()

	//goland:noinspection SqlResolve
	query := `SELECT p.id, p.title, p.slug, p.author_id, p.category_id, p.content, p.excerpt, p.featured_image,
		p.status, p.created_at, p.updated_at, p.published_at, p.scheduled_at, p.views,
		COALESCE(u.username, '') AS author_name, c.name AS category_name
		FROM posts p
		LEFT JOIN users u ON u.id = p.author_id
		LEFT JOIN categories c ON c.id = p.category_id` + where + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`

	args = append(args, limit, offset)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanPostListRows(rows)
}

// CountPostsFiltered returns the number of posts matching f.
func (q *Queries) CountPostsFiltered(ctx context.Context, f PostFilter) (int64, error) {
	where, args := f.where()

	//goland:noinspection SqlResolve
	query := `SELECT COUNT(*) FROM posts p` + where

	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
