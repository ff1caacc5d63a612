// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oblog/internal/util"
)

// Writes keep title_fold and content_fold in step with title and content.
// Writes return only the row id and the row is re-read with SELECT, so time
// columns are scanned with their declared DATETIME type on both drivers.
const createPost = `-- name: CreatePost :one
INSERT INTO posts (
    title, slug, author_id, category_id, content, title_fold, content_fold,
    excerpt, featured_image, status, created_at, updated_at, published_at, scheduled_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreatePostParams struct {
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	AuthorID      int64         `json:"author_id"`
	CategoryID    sql.NullInt64 `json:"category_id"`
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt"`
	FeaturedImage string        `json:"featured_image"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	PublishedAt   sql.NullTime  `json:"published_at"`
	ScheduledAt   sql.NullTime  `json:"scheduled_at"`
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.Title,
		arg.Slug,
		arg.AuthorID,
		arg.CategoryID,
		arg.Content,
		util.FoldSearch(arg.Title),
		util.FoldSearch(arg.Content),
		arg.Excerpt,
		arg.FeaturedImage,
		arg.Status,
		arg.CreatedAt,
		arg.UpdatedAt,
		arg.PublishedAt,
		arg.ScheduledAt,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Post{}, err
	}
	return q.GetPostByID(ctx, id)
}

const getPostByID = `-- name: GetPostByID :one
SELECT id, title, slug, author_id, category_id, content, excerpt, featured_image,
    status, created_at, updated_at, published_at, scheduled_at, views
FROM posts WHERE id = ?
`

func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostByID, id))
}

const getPostBySlug = `-- name: GetPostBySlug :one
SELECT id, title, slug, author_id, category_id, content, excerpt, featured_image,
    status, created_at, updated_at, published_at, scheduled_at, views
FROM posts WHERE slug = ?
`

func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostBySlug, slug))
}

// updatePost sets published_at in the same statement as the status change.
// COALESCE keeps the first publish time; moving back to draft leaves it untouched.
const updatePost = `-- name: UpdatePost :one
UPDATE posts SET
    title = ?,
    slug = ?,
    category_id = ?,
    content = ?,
    title_fold = ?,
    content_fold = ?,
    excerpt = ?,
    featured_image = ?,
    status = ?,
    published_at = CASE WHEN ? = 'published' THEN COALESCE(published_at, ?) ELSE published_at END,
    scheduled_at = ?,
    updated_at = ?
WHERE id = ?
RETURNING id
`

type UpdatePostParams struct {
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	CategoryID    sql.NullInt64 `json:"category_id"`
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt"`
	FeaturedImage string        `json:"featured_image"`
	Status        string        `json:"status"`
	PublishTime   time.Time     `json:"publish_time"`
	ScheduledAt   sql.NullTime  `json:"scheduled_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ID            int64         `json:"id"`
}

func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, updatePost,
		arg.Title,
		arg.Slug,
		arg.CategoryID,
		arg.Content,
		util.FoldSearch(arg.Title),
		util.FoldSearch(arg.Content),
		arg.Excerpt,
		arg.FeaturedImage,
		arg.Status,
		arg.Status,
		arg.PublishTime,
		arg.ScheduledAt,
		arg.UpdatedAt,
		arg.ID,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Post{}, err
	}
	return q.GetPostByID(ctx, id)
}

const publishScheduledPost = `-- name: PublishScheduledPost :execrows
UPDATE posts SET
    status = 'published',
    published_at = COALESCE(published_at, ?),
    scheduled_at = NULL,
    updated_at = ?
WHERE id = ? AND status = 'draft'
`

type PublishScheduledPostParams struct {
	PublishTime time.Time `json:"publish_time"`
	ID          int64     `json:"id"`
}

// PublishScheduledPost publishes a draft whose schedule came due. It affects
// no rows if the post was published or deleted in the meantime.
func (q *Queries) PublishScheduledPost(ctx context.Context, arg PublishScheduledPostParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, publishScheduledPost, arg.PublishTime, arg.PublishTime, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePost = `-- name: DeletePost :execrows
DELETE FROM posts WHERE id = ?
`

func (q *Queries) DeletePost(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePost, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCommentsForPost = `-- name: DeleteCommentsForPost :exec
DELETE FROM comments WHERE post_id = ?
`

func (q *Queries) DeleteCommentsForPost(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, deleteCommentsForPost, postID)
	return err
}

// incrementPostViews is a single-statement read-increment-write. Rows that are
// missing or not published are left untouched and yield sql.ErrNoRows.
const incrementPostViews = `-- name: IncrementPostViews :one
UPDATE posts SET views = views + 1
WHERE id = ? AND status = 'published'
RETURNING views
`

func (q *Queries) IncrementPostViews(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, incrementPostViews, id)
	var views int64
	err := row.Scan(&views)
	return views, err
}

const getPostViews = `-- name: GetPostViews :one
SELECT views FROM posts WHERE id = ?
`

func (q *Queries) GetPostViews(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, getPostViews, id)
	var views int64
	err := row.Scan(&views)
	return views, err
}

const listTopPosts = `-- name: ListTopPosts :many
SELECT p.id, p.title, p.slug, p.author_id, p.category_id, p.content, p.excerpt, p.featured_image,
    p.status, p.created_at, p.updated_at, p.published_at, p.scheduled_at, p.views,
    COALESCE(u.username, '') AS author_name, c.name AS category_name
FROM posts p
LEFT JOIN users u ON u.id = p.author_id
LEFT JOIN categories c ON c.id = p.category_id
WHERE p.status = 'published'
ORDER BY p.views DESC, p.id DESC
LIMIT ?
`

func (q *Queries) ListTopPosts(ctx context.Context, limit int64) ([]PostListRow, error) {
	rows, err := q.db.QueryContext(ctx, listTopPosts, limit)
	if err != nil {
		return nil, err
	}
	return scanPostListRows(rows)
}

const listDueScheduledPosts = `-- name: ListDueScheduledPosts :many
SELECT id, title, slug, author_id, category_id, content, excerpt, featured_image,
    status, created_at, updated_at, published_at, scheduled_at, views
FROM posts
WHERE status = 'draft' AND scheduled_at IS NOT NULL AND scheduled_at <= ?
ORDER BY scheduled_at, id
`

func (q *Queries) ListDueScheduledPosts(ctx context.Context, now time.Time) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listDueScheduledPosts, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Post
	for rows.Next() {
		i, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// PostListRow is a post joined with its author and category names.
type PostListRow struct {
	Post
	AuthorName   string         `json:"author_name"`
	CategoryName sql.NullString `json:"category_name"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var i Post
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.AuthorID,
		&i.CategoryID,
		&i.Content,
		&i.Excerpt,
		&i.FeaturedImage,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PublishedAt,
		&i.ScheduledAt,
		&i.Views,
	)
	return i, err
}

func scanPostListRows(rows *sql.Rows) ([]PostListRow, error) {
	defer rows.Close()
	var items []PostListRow
	for rows.Next() {
		var i PostListRow
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Slug,
			&i.AuthorID,
			&i.CategoryID,
			&i.Content,
			&i.Excerpt,
			&i.FeaturedImage,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.PublishedAt,
			&i.ScheduledAt,
			&i.Views,
			&i.AuthorName,
			&i.CategoryName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
