package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

const budgetColumns = `id, category_id, period, limit_amount, spent, updated_at`

type budgetRepository struct {
	q querier
}

func scanBudget(s rowScanner) (*domain.Budget, error) {
	var (
		b         domain.Budget
		period    string
		limit     string
		spent     string
		updatedAt string
	)
	if err := s.Scan(&b.ID, &b.CategoryID, &period, &limit, &spent, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.Period, err = domain.ParsePeriod(period); err != nil {
		return nil, err
	}
	if b.Limit, err = parseDecimal(limit); err != nil {
		return nil, err
	}
	if b.Spent, err = parseDecimal(spent); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Find returns the budget for the key, or nil if none is defined.
func (r *budgetRepository) Find(ctx context.Context, key domain.BudgetKey) (*domain.Budget, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE category_id = ? AND period = ?`,
		key.CategoryID, key.Period.String())
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Budgets.Find: %w", err)
	}
	return b, nil
}

func (r *budgetRepository) Save(ctx context.Context, b *domain.Budget) error {
	err := r.q.QueryRowContext(ctx, `INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (category_id, period) DO UPDATE SET
			limit_amount = excluded.limit_amount,
			spent = excluded.spent,
			updated_at = excluded.updated_at
		RETURNING id`,
		b.ID, b.CategoryID, b.Period.String(), b.Limit.String(), b.Spent.String(), formatTime(b.UpdatedAt),
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("Budgets.Save: %w", err)
	}
	return nil
}

func (r *budgetRepository) List(ctx context.Context) ([]*domain.Budget, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY period, category_id`)
	if err != nil {
		return nil, fmt.Errorf("Budgets.List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("Budgets.List: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
