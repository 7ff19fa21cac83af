package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/store"
)

const transactionColumns = `id, document_id, transaction_date, amount, currency, vendor_name, description,
	category_id, payment_method, tax_amount, tax_percentage, created_at, updated_at`

type transactionRepository struct {
	q querier
}

func scanTransaction(s rowScanner) (*domain.Transaction, error) {
	var (
		tx            domain.Transaction
		documentID    sql.NullString
		date          string
		amount        string
		taxAmount     string
		taxPercentage sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := s.Scan(&tx.ID, &documentID, &date, &amount, &tx.Currency, &tx.VendorName, &tx.Description,
		&tx.CategoryID, &tx.PaymentMethod, &taxAmount, &taxPercentage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	tx.DocumentID = stringPtr(documentID)
	if tx.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if tx.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if tx.TaxAmount, err = parseDecimal(taxAmount); err != nil {
		return nil, err
	}
	if tx.TaxPercentage, err = parseNullDecimal(taxPercentage); err != nil {
		return nil, err
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Get returns the transaction with the given id, or nil if there is none.
func (r *transactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Transactions.Get: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) Add(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, nullString(tx.DocumentID), tx.Date.String(), tx.Amount.String(), tx.Currency,
		tx.VendorName, tx.Description, tx.CategoryID, tx.PaymentMethod,
		tx.TaxAmount.String(), nullDecimal(tx.TaxPercentage), formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("Transactions.Add: %w", err)
	}
	return nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions
		SET document_id = ?, transaction_date = ?, amount = ?, currency = ?, vendor_name = ?, description = ?,
			category_id = ?, payment_method = ?, tax_amount = ?, tax_percentage = ?, updated_at = ?
		WHERE id = ?`,
		nullString(tx.DocumentID), tx.Date.String(), tx.Amount.String(), tx.Currency, tx.VendorName, tx.Description,
		tx.CategoryID, tx.PaymentMethod, tx.TaxAmount.String(), nullDecimal(tx.TaxPercentage), formatTime(tx.UpdatedAt),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("Transactions.Update: %w", err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("Transactions.Update: %s: %w", tx.ID, err)
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Transactions.Delete: %w", err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("Transactions.Delete: %s: %w", id, err)
	}
	return nil
}

func (r *transactionRepository) List(ctx context.Context) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY transaction_date, created_at, id`)
}

func (r *transactionRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE document_id = ? ORDER BY created_at, id`, documentID)
}

func (r *transactionRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("Transactions.CountByDocument: %w", err)
	}
	return n, nil
}

func (r *transactionRepository) ListByCategoryAndRange(ctx context.Context, categoryID string, from, to civil.Date) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE category_id = ? AND transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date, id`,
		categoryID, from.String(), to.String())
}

func (r *transactionRepository) ListKeys(ctx context.Context) ([]domain.BudgetKey, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT category_id, substr(transaction_date, 1, 7) AS period
		FROM transactions ORDER BY period, category_id`)
	if err != nil {
		return nil, fmt.Errorf("Transactions.ListKeys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []domain.BudgetKey
	for rows.Next() {
		var categoryID, period string
		if err := rows.Scan(&categoryID, &period); err != nil {
			return nil, fmt.Errorf("Transactions.ListKeys: scan: %w", err)
		}
		p, err := domain.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("Transactions.ListKeys: %w", err)
		}
		keys = append(keys, domain.BudgetKey{CategoryID: categoryID, Period: p})
	}
	return keys, rows.Err()
}

// FindDuplicates compares amounts as decimals because they are stored as text
// and "12.5" and "12.50" must match.
func (r *transactionRepository) FindDuplicates(ctx context.Context, vendor string, amount decimal.Decimal, limit int) ([]*domain.Transaction, error) {
	candidates, err := r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE vendor_name = ? COLLATE NOCASE
		ORDER BY transaction_date DESC, created_at DESC, id`, vendor)
	if err != nil {
		return nil, fmt.Errorf("Transactions.FindDuplicates: %w", err)
	}

	var dups []*domain.Transaction
	for _, tx := range candidates {
		if !tx.Amount.Equal(amount) {
			continue
		}
		dups = append(dups, tx)
		if limit > 0 && len(dups) == limit {
			break
		}
	}
	return dups, nil
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Transactions.list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("Transactions.list: scan: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
