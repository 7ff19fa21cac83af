// Package ledger holds the manual paths that change transactions outside
// document ingestion. Every change is followed by a budget recompute.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/notify"
	"github.com/dvloznov/finance-ingest/internal/store"
)

var (
	// ErrInvalidAmount is returned for amounts that are not positive.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrUnknownCategory is returned when the category does not exist.
	ErrUnknownCategory = errors.New("ledger: unknown category")
	// ErrNoIDs is returned by DeleteMany when no ids are given.
	ErrNoIDs = errors.New("ledger: no transaction ids given")
)

// duplicateLimit caps how many earlier transactions a duplicate check returns.
const duplicateLimit = 5

// Notifier delivers notification events.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Entry is the user-supplied content of a transaction.
type Entry struct {
	Date          civil.Date
	Amount        decimal.Decimal
	Currency      string
	Vendor        string
	Description   string
	CategoryID    string
	PaymentMethod string
	TaxAmount     decimal.Decimal
	TaxPercentage *decimal.Decimal
}

// Service creates, edits and deletes transactions by hand.
type Service struct {
	db       store.Database
	budgets  *budget.Synchronizer
	notifier Notifier
	now      func() time.Time
	currency string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where budget events go.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCurrency sets the currency used when an entry has none.
func WithCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

// NewService creates a ledger service.
func NewService(db store.Database, budgets *budget.Synchronizer, opts ...Option) *Service {
	s := &Service{
		db:       db,
		budgets:  budgets,
		notifier: notify.NewDispatcher(),
		now:      time.Now,
		currency: domain.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) validate(ctx context.Context, repos store.Repositories, e Entry) (*domain.Category, error) {
	if !e.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, e.Amount.String())
	}
	if !e.Date.IsValid() {
		return nil, fmt.Errorf("invalid date %q", e.Date.String())
	}
	cat, err := repos.Categories().Get(ctx, e.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("loading category: %w", err)
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, e.CategoryID)
	}
	return cat, nil
}

func (s *Service) apply(tx *domain.Transaction, e Entry) {
	tx.Date = e.Date
	tx.Amount = e.Amount
	tx.Currency = e.Currency
	if tx.Currency == "" {
		tx.Currency = s.currency
	}
	tx.VendorName = e.Vendor
	if tx.VendorName == "" {
		tx.VendorName = domain.UnknownVendor
	}
	tx.Description = e.Description
	tx.CategoryID = e.CategoryID
	tx.PaymentMethod = e.PaymentMethod
	tx.TaxAmount = e.TaxAmount
	tx.TaxPercentage = e.TaxPercentage
	tx.UpdatedAt = s.now()
}

// Create adds a manual transaction and recomputes its budget.
func (s *Service) Create(ctx context.Context, e Entry) (*domain.Transaction, error) {
	sess, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	defer sess.Rollback()

	cat, err := s.validate(ctx, sess, e)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	tx := &domain.Transaction{ID: uuid.New().String(), CreatedAt: s.now()}
	s.apply(tx, e)
	if err := sess.Transactions().Add(ctx, tx); err != nil {
		return nil, fmt.Errorf("Create: adding transaction: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", tx.ID).
		Str("category", cat.Name).
		Str("amount", tx.Amount.String()).
		Msg("Transaction created")

	s.notifier.Notify(ctx, notify.TransactionAdded(tx, cat.Name, 100))
	budgets, err := s.budgets.SyncTransaction(ctx, tx, nil)
	s.afterSync(ctx, budgets, cat.Name, err)
	return tx, nil
}

// Update replaces the content of an existing transaction. When its category
// or month changed, both the old and the new budget are recomputed.
func (s *Service) Update(ctx context.Context, id string, e Entry) (*domain.Transaction, error) {
	sess, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	defer sess.Rollback()

	tx, err := sess.Transactions().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: loading transaction: %w", err)
	}
	if tx == nil {
		return nil, fmt.Errorf("Update: transaction %q: %w", id, store.ErrNotFound)
	}
	cat, err := s.validate(ctx, sess, e)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	old := &budget.Previous{CategoryID: tx.CategoryID, Date: tx.Date}
	s.apply(tx, e)
	if err := sess.Transactions().Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", tx.ID).Msg("Transaction updated")

	budgets, err := s.budgets.SyncTransaction(ctx, tx, old)
	s.afterSync(ctx, budgets, cat.Name, err)
	return tx, nil
}

// Delete removes a transaction and recomputes the budget it counted towards.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	defer sess.Rollback()

	tx, err := sess.Transactions().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: loading transaction: %w", err)
	}
	if tx == nil {
		return fmt.Errorf("Delete: transaction %q: %w", id, store.ErrNotFound)
	}
	categoryID, date := tx.CategoryID, tx.Date

	if err := sess.Transactions().Delete(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", id).Msg("Transaction deleted")

	b, err := s.budgets.SyncDeleted(ctx, categoryID, date)
	var budgets []*domain.Budget
	if b != nil {
		budgets = append(budgets, b)
	}
	s.afterSync(ctx, budgets, s.categoryName(ctx, categoryID), err)
	return nil
}

// DeleteMany removes the transactions with the given ids in one session and
// recomputes every budget they counted towards. Unknown ids are skipped. It
// returns the number of transactions deleted.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("DeleteMany: %w", ErrNoIDs)
	}

	sess, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteMany: %w", err)
	}
	defer sess.Rollback()

	var (
		keys    []domain.BudgetKey
		deleted int
	)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		tx, err := sess.Transactions().Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("DeleteMany: loading transaction %q: %w", id, err)
		}
		if tx == nil {
			continue
		}
		if err := sess.Transactions().Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("DeleteMany: %w", err)
		}
		keys = append(keys, tx.Key())
		deleted++
	}
	if err := sess.Commit(); err != nil {
		return 0, fmt.Errorf("DeleteMany: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("requested", len(ids)).
		Int("deleted", deleted).
		Msg("Transactions deleted")

	budgets, err := s.budgets.SyncKeys(ctx, keys)
	if err != nil {
		s.afterSync(ctx, nil, "", err)
	}
	for _, b := range budgets {
		s.afterSync(ctx, []*domain.Budget{b}, s.categoryName(ctx, b.CategoryID), nil)
	}
	return deleted, nil
}

// Duplicates returns earlier transactions with the same vendor and amount as
// e, newest first.
func (s *Service) Duplicates(ctx context.Context, e Entry) ([]*domain.Transaction, error) {
	vendor := e.Vendor
	if vendor == "" {
		vendor = domain.UnknownVendor
	}
	dups, err := s.db.Transactions().FindDuplicates(ctx, vendor, e.Amount, duplicateLimit)
	if err != nil {
		return nil, fmt.Errorf("Duplicates: %w", err)
	}
	return dups, nil
}

// afterSync reports a failed recompute or threshold alerts. The change itself
// is already committed, so neither is returned to the caller.
func (s *Service) afterSync(ctx context.Context, budgets []*domain.Budget, categoryName string, err error) {
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Budget sync failed, budgets stale until next full sync")
		s.notifier.Notify(ctx, notify.BudgetSyncFailed("", err))
		return
	}
	for _, a := range s.budgets.Alerts(budgets) {
		s.notifier.Notify(ctx, notify.BudgetAlert(a, categoryName))
	}
}

func (s *Service) categoryName(ctx context.Context, id string) string {
	cat, err := s.db.Categories().Get(ctx, id)
	if err != nil || cat == nil {
		return id
	}
	return cat.Name
}
