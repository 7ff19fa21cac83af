// Package store defines the repositories the ingestion pipeline, the budget
// synchronizer and the ledger operate on.
package store

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// ErrNotFound is returned by mutations addressing a row that does not exist.
// Lookups return nil, nil instead.
var ErrNotFound = errors.New("store: not found")

// DocumentRepository persists uploaded documents.
type DocumentRepository interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
	Add(ctx context.Context, doc *domain.Document) error
	Update(ctx context.Context, doc *domain.Document) error
	List(ctx context.Context) ([]*domain.Document, error)
	ListUnprocessed(ctx context.Context) ([]*domain.Document, error)
}

// TransactionRepository persists transactions, the source of truth budgets
// are recomputed from.
type TransactionRepository interface {
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Add(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Transaction, error)
	ListByDocument(ctx context.Context, documentID string) ([]*domain.Transaction, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	// ListByCategoryAndRange returns transactions of the category dated
	// within [from, to], both ends inclusive.
	ListByCategoryAndRange(ctx context.Context, categoryID string, from, to civil.Date) ([]*domain.Transaction, error)
	// ListKeys returns every distinct (category, month) pair with at least
	// one transaction.
	ListKeys(ctx context.Context) ([]domain.BudgetKey, error)
	// FindDuplicates returns up to limit transactions with the same vendor,
	// compared case-insensitively, and an equal amount, newest first.
	FindDuplicates(ctx context.Context, vendor string, amount decimal.Decimal, limit int) ([]*domain.Transaction, error)
}

// CategoryRepository reads spending categories.
type CategoryRepository interface {
	Get(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Add(ctx context.Context, c *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
}

// BudgetRepository persists budget aggregates, one per (category, period).
type BudgetRepository interface {
	Find(ctx context.Context, key domain.BudgetKey) (*domain.Budget, error)
	// Save inserts or replaces the budget for its key. On return b.ID holds
	// the stored row's id.
	Save(ctx context.Context, b *domain.Budget) error
	List(ctx context.Context) ([]*domain.Budget, error)
}

// NotificationRepository persists the notification feed.
type NotificationRepository interface {
	Add(ctx context.Context, n *domain.Notification) error
	ListRecent(ctx context.Context, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Repositories groups the repositories bound to one connection or session.
type Repositories interface {
	Documents() DocumentRepository
	Transactions() TransactionRepository
	Categories() CategoryRepository
	Budgets() BudgetRepository
	Notifications() NotificationRepository
}

// Session is a scoped unit of work. Writes are visible to other sessions only
// after Commit. Rollback after Commit is a no-op, so callers may defer it.
type Session interface {
	Repositories
	Commit() error
	Rollback() error
}

// Database is the top-level handle. Its repositories run outside any session.
type Database interface {
	Repositories
	Begin(ctx context.Context) (Session, error)
	Close() error
}
