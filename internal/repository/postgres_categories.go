package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db querier
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	_, err := r.db.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapError(err))
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", mapError(err))
	}
	return &c, nil
}

// List returns categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]model.Category, error) {
	var (
		q    strings.Builder
		args []any
	)
	q.WriteString(`SELECT id, name FROM categories ORDER BY name, id`)
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
		return nil, fmt.Errorf("list categories: %w", mapError(err))
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
