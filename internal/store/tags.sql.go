// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"
)

const getTagByName = `-- name: GetTagByName :one
SELECT id, name FROM tags WHERE name = ?
`

func (q *Queries) GetTagByName(ctx context.Context, name string) (Tag, error) {
	row := q.db.QueryRowContext(ctx, getTagByName, name)
	var i Tag
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const getTagByID = `-- name: GetTagByID :one
SELECT id, name FROM tags WHERE id = ?
`

func (q *Queries) GetTagByID(ctx context.Context, id int64) (Tag, error) {
	row := q.db.QueryRowContext(ctx, getTagByID, id)
	var i Tag
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const ensureTag = `-- name: EnsureTag :one
INSERT INTO tags (name) VALUES (?)
ON CONFLICT (name) DO UPDATE SET name = excluded.name
RETURNING id, name
`

// EnsureTag returns the tag with the given name, creating it if needed.
func (q *Queries) EnsureTag(ctx context.Context, name string) (Tag, error) {
	row := q.db.QueryRowContext(ctx, ensureTag, name)
	var i Tag
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listTagsWithCounts = `-- name: ListTagsWithCounts :many
SELECT t.id, t.name,
    (SELECT COUNT(*) FROM post_tags pt
        JOIN posts p ON p.id = pt.post_id
        WHERE pt.tag_id = t.id AND p.status = 'published') AS post_count
FROM tags t
ORDER BY t.name
`

type ListTagsWithCountsRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PostCount int64  `json:"post_count"`
}

func (q *Queries) ListTagsWithCounts(ctx context.Context) ([]ListTagsWithCountsRow, error) {
	rows, err := q.db.QueryContext(ctx, listTagsWithCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListTagsWithCountsRow
	for rows.Next() {
		var i ListTagsWithCountsRow
		if err := rows.Scan(&i.ID, &i.Name, &i.PostCount); err != nil {
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

const deleteTagMemberships = `-- name: DeleteTagMemberships :exec
DELETE FROM post_tags WHERE tag_id = ?
`

func (q *Queries) DeleteTagMemberships(ctx context.Context, tagID int64) error {
	_, err := q.db.ExecContext(ctx, deleteTagMemberships, tagID)
	return err
}

const deleteTag = `-- name: DeleteTag :execrows
DELETE FROM tags WHERE id = ?
`

func (q *Queries) DeleteTag(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTag, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const addTagToPost = `-- name: AddTagToPost :exec
INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)
ON CONFLICT (post_id, tag_id) DO NOTHING
`

type AddTagToPostParams struct {
	PostID int64 `json:"post_id"`
	TagID  int64 `json:"tag_id"`
}

func (q *Queries) AddTagToPost(ctx context.Context, arg AddTagToPostParams) error {
	_, err := q.db.ExecContext(ctx, addTagToPost, arg.PostID, arg.TagID)
	return err
}

const clearPostTags = `-- name: ClearPostTags :exec
DELETE FROM post_tags WHERE post_id = ?
`

func (q *Queries) ClearPostTags(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, clearPostTags, postID)
	return err
}

const getTagsForPost = `-- name: GetTagsForPost :many
SELECT t.id, t.name FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id = ?
ORDER BY t.name
`

func (q *Queries) GetTagsForPost(ctx context.Context, postID int64) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, getTagsForPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		var i Tag
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
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

// GetTagNamesForPosts returns tag names keyed by post id for a batch of posts.
// Hand-written: sqlc cannot expand a variable-length IN list for SQLite.
func (q *Queries) GetTagNamesForPosts(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(postIDs))
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	//goland:noinspection SqlResolve
	query := `SELECT pt.post_id, t.name FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY pt.post_id, t.name`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return nil, err
		}
		result[postID] = append(result[postID], name)
	}
	return result, rows.Err()
}
