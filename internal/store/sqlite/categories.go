package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

type categoryRepository struct {
	q querier
}

func scanCategory(s rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := s.Scan(&c.ID, &c.Name, &c.Color, &c.Icon); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) get(ctx context.Context, query string, arg string) (*domain.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the category with the given id, or nil if there is none.
func (r *categoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := r.get(ctx, `SELECT id, name, color, icon FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("Categories.Get: %w", err)
	}
	return c, nil
}

// GetByName returns the category with exactly this name, or nil.
func (r *categoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	c, err := r.get(ctx, `SELECT id, name, color, icon FROM categories WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("Categories.GetByName: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) Add(ctx context.Context, c *domain.Category) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO categories (id, name, color, icon) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon)
	if err != nil {
		return fmt.Errorf("Categories.Add: %w", err)
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, color, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("Categories.List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("Categories.List: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
