// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const upsertUser = `-- name: UpsertUser :one
INSERT INTO users (id, username, is_superuser, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    username = excluded.username,
    is_superuser = excluded.is_superuser,
    updated_at = excluded.updated_at
`

type UpsertUserParams struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	if _, err := q.db.ExecContext(ctx, upsertUser,
		arg.ID,
		arg.Username,
		arg.IsSuperuser,
		arg.CreatedAt,
		arg.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, arg.ID)
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, username, is_superuser, created_at, updated_at FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.IsSuperuser,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
