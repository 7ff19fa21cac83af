// Package budget keeps budget spend consistent with the transactions it
// aggregates. Every update recomputes from the transactions table; nothing is
// applied incrementally.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/store"
)

// ErrNegativeLimit is returned when a budget limit below zero is requested.
var ErrNegativeLimit = errors.New("budget limit must not be negative")

// Previous captures where a transaction used to count before an update.
type Previous struct {
	CategoryID string
	Date       civil.Date
}

// Key returns the budget pair the previous values contributed to.
func (p Previous) Key() domain.BudgetKey {
	return domain.BudgetKey{CategoryID: p.CategoryID, Period: domain.PeriodOf(p.Date)}
}

// Synchronizer recomputes budget spend.
type Synchronizer struct {
	db         store.Database
	now        func() time.Time
	autoCreate bool
	thresholds Thresholds
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithAutoCreate makes recomputation create a zero-limit budget for pairs
// that have spend but no budget row.
func WithAutoCreate(enabled bool) Option {
	return func(s *Synchronizer) { s.autoCreate = enabled }
}

// WithThresholds sets the alert thresholds in percent of the limit.
func WithThresholds(t Thresholds) Option {
	return func(s *Synchronizer) { s.thresholds = t }
}

// NewSynchronizer creates a synchronizer over db.
func NewSynchronizer(db store.Database, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		db:         db,
		now:        time.Now,
		thresholds: DefaultThresholds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recompute sets Spent of the budget for key to the sum of its transactions,
// in a session of its own. It returns nil when the pair has no budget row and
// none was created.
func (s *Synchronizer) Recompute(ctx context.Context, key domain.BudgetKey) (*domain.Budget, error) {
	sess, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("Recompute: begin: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	b, err := sess.Budgets().Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("Recompute: finding budget %s: %w", key, err)
	}
	if b == nil && !s.autoCreate {
		return nil, nil
	}

	spent, n, err := sumSpent(ctx, sess, key)
	if err != nil {
		return nil, fmt.Errorf("Recompute: %w", err)
	}

	if b == nil {
		if spent.IsZero() {
			return nil, nil
		}
		b = &domain.Budget{
			ID:         uuid.New().String(),
			CategoryID: key.CategoryID,
			Period:     key.Period,
			Limit:      decimal.Zero,
		}
	}

	b.Spent = spent
	b.UpdatedAt = s.now()
	if err := sess.Budgets().Save(ctx, b); err != nil {
		return nil, fmt.Errorf("Recompute: saving budget %s: %w", key, err)
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("Recompute: commit: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("category_id", key.CategoryID).
		Str("period", key.Period.String()).
		Str("spent", spent.String()).
		Int("transactions", n).
		Msg("Budget recomputed")
	return b, nil
}

// SetLimit creates or updates the budget for key with the given limit and
// recomputes its spend in the same session.
func (s *Synchronizer) SetLimit(ctx context.Context, key domain.BudgetKey, limit decimal.Decimal) (*domain.Budget, error) {
	if limit.IsNegative() {
		return nil, fmt.Errorf("SetLimit: %w: %s", ErrNegativeLimit, limit)
	}

	sess, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("SetLimit: begin: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	b, err := sess.Budgets().Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("SetLimit: finding budget %s: %w", key, err)
	}
	if b == nil {
		b = &domain.Budget{ID: uuid.New().String(), CategoryID: key.CategoryID, Period: key.Period}
	}

	spent, _, err := sumSpent(ctx, sess, key)
	if err != nil {
		return nil, fmt.Errorf("SetLimit: %w", err)
	}
	b.Limit = limit
	b.Spent = spent
	b.UpdatedAt = s.now()
	if err := sess.Budgets().Save(ctx, b); err != nil {
		return nil, fmt.Errorf("SetLimit: saving budget %s: %w", key, err)
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("SetLimit: commit: %w", err)
	}
	return b, nil
}

func sumSpent(ctx context.Context, repos store.Repositories, key domain.BudgetKey) (decimal.Decimal, int, error) {
	txs, err := repos.Transactions().ListByCategoryAndRange(ctx, key.CategoryID, key.Period.Start(), key.Period.End())
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("listing transactions %s: %w", key, err)
	}
	spent := decimal.Zero
	for _, tx := range txs {
		spent = spent.Add(tx.Amount)
	}
	return spent, len(txs), nil
}

// SyncTransaction recomputes the pair tx contributes to and, when old is given
// and differs, the pair it contributed to before.
func (s *Synchronizer) SyncTransaction(ctx context.Context, tx *domain.Transaction, old *Previous) ([]*domain.Budget, error) {
	keys := []domain.BudgetKey{tx.Key()}
	if old != nil && old.Key() != tx.Key() {
		keys = append(keys, old.Key())
	}
	return s.recomputeAll(ctx, keys)
}

// SyncDeleted recomputes the pair a deleted transaction contributed to, from
// values captured before deletion.
func (s *Synchronizer) SyncDeleted(ctx context.Context, categoryID string, date civil.Date) (*domain.Budget, error) {
	return s.Recompute(ctx, domain.BudgetKey{CategoryID: categoryID, Period: domain.PeriodOf(date)})
}

// SyncKeys recomputes each distinct pair in keys, continuing past failures.
func (s *Synchronizer) SyncKeys(ctx context.Context, keys []domain.BudgetKey) ([]*domain.Budget, error) {
	return s.recomputeAll(ctx, keys)
}

// SyncAll recomputes every pair that has transactions or a budget row and
// returns the number of budgets written.
func (s *Synchronizer) SyncAll(ctx context.Context) (int, error) {
	txKeys, err := s.db.Transactions().ListKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("SyncAll: listing transaction keys: %w", err)
	}
	budgets, err := s.db.Budgets().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("SyncAll: listing budgets: %w", err)
	}

	keys := make([]domain.BudgetKey, 0, len(txKeys)+len(budgets))
	keys = append(keys, txKeys...)
	for _, b := range budgets {
		keys = append(keys, b.Key())
	}

	written, err := s.recomputeAll(ctx, keys)
	log := logger.FromContext(ctx)
	log.Info().Int("budgets_updated", len(written)).Msg("Budgets synchronized")
	if err != nil {
		return len(written), fmt.Errorf("SyncAll: %w", err)
	}
	return len(written), nil
}

// recomputeAll recomputes each distinct key, continuing past failures.
func (s *Synchronizer) recomputeAll(ctx context.Context, keys []domain.BudgetKey) ([]*domain.Budget, error) {
	seen := make(map[domain.BudgetKey]struct{}, len(keys))
	var (
		written []*domain.Budget
		errs    []error
	)
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		b, err := s.Recompute(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if b != nil {
			written = append(written, b)
		}
	}
	return written, errors.Join(errs...)
}
