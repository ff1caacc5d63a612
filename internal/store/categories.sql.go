// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, description, created_at)
VALUES (?, ?, ?)
RETURNING id
`

type CreateCategoryParams struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, createCategory, arg.Name, arg.Description, arg.CreatedAt).Scan(&id); err != nil {
		return Category{}, err
	}
	return q.GetCategoryByID(ctx, id)
}

const getCategoryByID = `-- name: GetCategoryByID :one
SELECT id, name, description, created_at FROM categories WHERE id = ?
`

func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByID, id)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const getCategoryByName = `-- name: GetCategoryByName :one
SELECT id, name, description, created_at FROM categories WHERE name = ?
`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByName, name)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const listCategoriesWithCounts = `-- name: ListCategoriesWithCounts :many
SELECT c.id, c.name, c.description, c.created_at,
    (SELECT COUNT(*) FROM posts p WHERE p.category_id = c.id AND p.status = 'published') AS post_count
FROM categories c
ORDER BY c.name
`

type ListCategoriesWithCountsRow struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	PostCount   int64     `json:"post_count"`
}

func (q *Queries) ListCategoriesWithCounts(ctx context.Context) ([]ListCategoriesWithCountsRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesWithCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCategoriesWithCountsRow
	for rows.Next() {
		var i ListCategoriesWithCountsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.CreatedAt,
			&i.PostCount,
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

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories SET name = ?, description = ?
WHERE id = ?
RETURNING id
`

type UpdateCategoryParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ID          int64  `json:"id"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, updateCategory, arg.Name, arg.Description, arg.ID).Scan(&id); err != nil {
		return Category{}, err
	}
	return q.GetCategoryByID(ctx, id)
}

const clearPostsCategory = `-- name: ClearPostsCategory :execrows
UPDATE posts SET category_id = NULL WHERE category_id = ?
`

func (q *Queries) ClearPostsCategory(ctx context.Context, categoryID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearPostsCategory, categoryID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = ?
`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
