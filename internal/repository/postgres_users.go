package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db querier
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Email, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapError(err))
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, ids []string, offset, limit int) ([]model.User, error) {
	var (
		q    strings.Builder
		args []any
	)
	q.WriteString(`SELECT id, name, email, created_at FROM users`)
	if len(ids) > 0 {
		args = append(args, ids)
		q.WriteString(` WHERE id = ANY($1::uuid[])`)
	}
	q.WriteString(` ORDER BY created_at, id`)
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
