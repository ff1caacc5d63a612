// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createComment = `-- name: CreateComment :one
INSERT INTO comments (post_id, author_id, content, approved, created_at)
VALUES (?, ?, ?, 0, ?)
RETURNING id
`

type CreateCommentParams struct {
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, createComment, arg.PostID, arg.AuthorID, arg.Content, arg.CreatedAt).Scan(&id); err != nil {
		return Comment{}, err
	}
	return q.GetCommentByID(ctx, id)
}

const getCommentByID = `-- name: GetCommentByID :one
SELECT id, post_id, author_id, content, approved, created_at FROM comments WHERE id = ?
`

func (q *Queries) GetCommentByID(ctx context.Context, id int64) (Comment, error) {
	row := q.db.QueryRowContext(ctx, getCommentByID, id)
	var i Comment
	err := row.Scan(
		&i.ID,
		&i.PostID,
		&i.AuthorID,
		&i.Content,
		&i.Approved,
		&i.CreatedAt,
	)
	return i, err
}

// CommentRow is a comment joined with its author's username.
type CommentRow struct {
	Comment
	AuthorName string `json:"author_name"`
}

const listVisibleCommentsForPost = `-- name: ListVisibleCommentsForPost :many
SELECT c.id, c.post_id, c.author_id, c.content, c.approved, c.created_at,
    COALESCE(u.username, '') AS author_name
FROM comments c
LEFT JOIN users u ON u.id = c.author_id
WHERE c.post_id = ? AND (c.approved = 1 OR c.author_id = ?)
ORDER BY c.created_at, c.id
`

type ListVisibleCommentsForPostParams struct {
	PostID   int64 `json:"post_id"`
	ViewerID int64 `json:"viewer_id"`
}

// ListVisibleCommentsForPost returns approved comments plus the viewer's own
// pending ones. ViewerID 0 matches no author.
func (q *Queries) ListVisibleCommentsForPost(ctx context.Context, arg ListVisibleCommentsForPostParams) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, listVisibleCommentsForPost, arg.PostID, arg.ViewerID)
	if err != nil {
		return nil, err
	}
	return scanCommentRows(rows)
}

const listAllCommentsForPost = `-- name: ListAllCommentsForPost :many
SELECT c.id, c.post_id, c.author_id, c.content, c.approved, c.created_at,
    COALESCE(u.username, '') AS author_name
FROM comments c
LEFT JOIN users u ON u.id = c.author_id
WHERE c.post_id = ?
ORDER BY c.created_at, c.id
`

func (q *Queries) ListAllCommentsForPost(ctx context.Context, postID int64) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, listAllCommentsForPost, postID)
	if err != nil {
		return nil, err
	}
	return scanCommentRows(rows)
}

const listCommentsByAuthor = `-- name: ListCommentsByAuthor :many
SELECT c.id, c.post_id, c.author_id, c.content, c.approved, c.created_at,
    COALESCE(u.username, '') AS author_name
FROM comments c
LEFT JOIN users u ON u.id = c.author_id
WHERE c.author_id = ?
ORDER BY c.created_at DESC, c.id DESC
`

func (q *Queries) ListCommentsByAuthor(ctx context.Context, authorID int64) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsByAuthor, authorID)
	if err != nil {
		return nil, err
	}
	return scanCommentRows(rows)
}

const listPendingComments = `-- name: ListPendingComments :many
SELECT c.id, c.post_id, c.author_id, c.content, c.approved, c.created_at,
    COALESCE(u.username, '') AS author_name
FROM comments c
LEFT JOIN users u ON u.id = c.author_id
WHERE c.approved = 0
ORDER BY c.created_at, c.id
LIMIT ? OFFSET ?
`

type ListPendingCommentsParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListPendingComments(ctx context.Context, arg ListPendingCommentsParams) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPendingComments, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanCommentRows(rows)
}

const countPendingComments = `-- name: CountPendingComments :one
SELECT COUNT(*) FROM comments WHERE approved = 0
`

func (q *Queries) CountPendingComments(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingComments)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const setCommentApproved = `-- name: SetCommentApproved :execrows
UPDATE comments SET approved = ? WHERE id = ?
`

type SetCommentApprovedParams struct {
	Approved bool  `json:"approved"`
	ID       int64 `json:"id"`
}

// SetCommentApproved reports zero rows for unknown ids. Setting the current
// value again still counts as one affected row.
func (q *Queries) SetCommentApproved(ctx context.Context, arg SetCommentApprovedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setCommentApproved, arg.Approved, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteComment = `-- name: DeleteComment :execrows
DELETE FROM comments WHERE id = ?
`

func (q *Queries) DeleteComment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteComment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanCommentRows(rows *sql.Rows) ([]CommentRow, error) {
	defer rows.Close()
	var items []CommentRow
	for rows.Next() {
		var i CommentRow
		if err := rows.Scan(
			&i.ID,
			&i.PostID,
			&i.AuthorID,
			&i.Content,
			&i.Approved,
			&i.CreatedAt,
			&i.AuthorName,
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
