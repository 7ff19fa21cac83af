package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/store"
	"github.com/dvloznov/finance-ingest/internal/store/sqlite"
)

var (
	march = domain.Period{Year: 2024, Month: time.March}
	april = domain.Period{Year: 2024, Month: time.April}
)

type fixture struct {
	db   *sqlite.DB
	sync *Synchronizer
	cats map[string]*domain.Category
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = store.SeedCategories(ctx, db)
	require.NoError(t, err)

	cats, err := db.Categories().List(ctx)
	require.NoError(t, err)
	byName := make(map[string]*domain.Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}
	return &fixture{db: db, sync: NewSynchronizer(db, opts...), cats: byName}
}

func (f *fixture) addTx(t *testing.T, category string, date civil.Date, amount string) *domain.Transaction {
	t.Helper()
	now := time.Now()
	tx := &domain.Transaction{
		ID:         uuid.New().String(),
		Date:       date,
		Amount:     decimal.RequireFromString(amount),
		Currency:   domain.DefaultCurrency,
		VendorName: "Acme",
		CategoryID: f.cats[category].ID,
		TaxAmount:  decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.db.Transactions().Add(context.Background(), tx))
	return tx
}

func (f *fixture) setBudget(t *testing.T, category string, p domain.Period, limit string) {
	t.Helper()
	require.NoError(t, f.db.Budgets().Save(context.Background(), &domain.Budget{
		ID:         uuid.New().String(),
		CategoryID: f.cats[category].ID,
		Period:     p,
		Limit:      decimal.RequireFromString(limit),
		Spent:      decimal.Zero,
		UpdatedAt:  time.Now(),
	}))
}

func (f *fixture) spent(t *testing.T, category string, p domain.Period) decimal.Decimal {
	t.Helper()
	b, err := f.db.Budgets().Find(context.Background(), domain.BudgetKey{CategoryID: f.cats[category].ID, Period: p})
	require.NoError(t, err)
	require.NotNil(t, b, "no budget for %s %s", category, p)
	return b.Spent
}

func day(m time.Month, d int) civil.Date {
	return civil.Date{Year: 2024, Month: m, Day: d}
}

func TestSyncTransaction_SumsMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")

	f.addTx(t, "Groceries", day(time.March, 1), "100.10")
	f.addTx(t, "Groceries", day(time.March, 31), "50.05")
	f.addTx(t, "Groceries", day(time.April, 1), "999")
	f.addTx(t, "Travel", day(time.March, 10), "500")
	tx := f.addTx(t, "Groceries", day(time.March, 15), "0.85")

	written, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)
	require.Len(t, written, 1)

	assert.Equal(t, "151", f.spent(t, "Groceries", march).String())
}

func TestSyncTransaction_CategoryMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")
	f.setBudget(t, "Shopping", march, "1000")

	f.addTx(t, "Groceries", day(time.March, 2), "40")
	tx := f.addTx(t, "Groceries", day(time.March, 3), "60")
	_, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)
	require.Equal(t, "100", f.spent(t, "Groceries", march).String())

	old := &Previous{CategoryID: tx.CategoryID, Date: tx.Date}
	tx.CategoryID = f.cats["Shopping"].ID
	require.NoError(t, f.db.Transactions().Update(ctx, tx))

	written, err := f.sync.SyncTransaction(ctx, tx, old)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	assert.Equal(t, "40", f.spent(t, "Groceries", march).String())
	assert.Equal(t, "60", f.spent(t, "Shopping", march).String())
}

func TestSyncTransaction_DateMoveAcrossMonths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")
	f.setBudget(t, "Groceries", april, "1000")

	tx := f.addTx(t, "Groceries", day(time.March, 30), "25")
	_, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)

	old := &Previous{CategoryID: tx.CategoryID, Date: tx.Date}
	tx.Date = day(time.April, 2)
	require.NoError(t, f.db.Transactions().Update(ctx, tx))
	_, err = f.sync.SyncTransaction(ctx, tx, old)
	require.NoError(t, err)

	assert.True(t, f.spent(t, "Groceries", march).IsZero())
	assert.Equal(t, "25", f.spent(t, "Groceries", april).String())
}

func TestSyncDeleted_ExcludesDeletedAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")

	f.addTx(t, "Groceries", day(time.March, 2), "40")
	tx := f.addTx(t, "Groceries", day(time.March, 3), "60")
	_, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)

	categoryID, date := tx.CategoryID, tx.Date
	require.NoError(t, f.db.Transactions().Delete(ctx, tx.ID))

	b, err := f.sync.SyncDeleted(ctx, categoryID, date)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "40", b.Spent.String())
	assert.Equal(t, "40", f.spent(t, "Groceries", march).String())
}

func TestRecompute_SkipsWithoutBudgetRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tx := f.addTx(t, "Travel", day(time.March, 2), "40")

	written, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)
	assert.Empty(t, written)

	all, err := f.db.Budgets().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecompute_AutoCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithAutoCreate(true))
	tx := f.addTx(t, "Travel", day(time.March, 2), "40")

	written, err := f.sync.SyncTransaction(ctx, tx, nil)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.True(t, written[0].Limit.IsZero())
	assert.Equal(t, "40", f.spent(t, "Travel", march).String())
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")
	f.setBudget(t, "Groceries", april, "1000")
	f.setBudget(t, "Healthcare", march, "300") // no transactions, recomputed to zero

	f.addTx(t, "Groceries", day(time.March, 2), "40")
	f.addTx(t, "Groceries", day(time.April, 2), "15")
	f.addTx(t, "Travel", day(time.March, 2), "70") // no budget row, skipped

	n, err := f.sync.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "40", f.spent(t, "Groceries", march).String())
	assert.Equal(t, "15", f.spent(t, "Groceries", april).String())
	assert.True(t, f.spent(t, "Healthcare", march).IsZero())
}

func TestSyncAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setBudget(t, "Groceries", march, "1000")
	f.addTx(t, "Groceries", day(time.March, 2), "40")

	for i := 0; i < 2; i++ {
		_, err := f.sync.SyncAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, "40", f.spent(t, "Groceries", march).String())
	}
}

func TestThresholds_Evaluate(t *testing.T) {
	budget := func(limit, spent string) *domain.Budget {
		return &domain.Budget{Period: march, Limit: decimal.RequireFromString(limit), Spent: decimal.RequireFromString(spent)}
	}

	tests := []struct {
		name string
		b    *domain.Budget
		want string
	}{
		{"under", budget("100", "79.99"), ""},
		{"warning at 80", budget("100", "80"), domain.EventBudgetWarning},
		{"exceeded at 100", budget("100", "100"), domain.EventBudgetExceeded},
		{"over", budget("100", "250"), domain.EventBudgetExceeded},
		{"zero limit never alerts", budget("0", "250"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := DefaultThresholds.Evaluate([]*domain.Budget{tt.b})
			if tt.want == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.want, alerts[0].Type)
		})
	}
}

func TestAlert_Message(t *testing.T) {
	b := &domain.Budget{Period: march, Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(120)}
	msg := Alert{Type: domain.EventBudgetExceeded, Budget: b, Percent: 120}.Message("Groceries")
	assert.Equal(t, "Groceries budget for 2024-03 exceeded: spent 120.00 of 100.00 (120%)", msg)
}

func TestSetLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addTx(t, "Groceries", day(time.March, 3), "120")
	f.addTx(t, "Groceries", day(time.March, 9), "30")
	key := domain.BudgetKey{CategoryID: f.cats["Groceries"].ID, Period: march}

	b, err := f.sync.SetLimit(ctx, key, decimal.RequireFromString("500"))
	require.NoError(t, err)
	assert.Equal(t, "500", b.Limit.String())
	assert.Equal(t, "150", b.Spent.String())

	b2, err := f.sync.SetLimit(ctx, key, decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, b.ID, b2.ID)

	all, err := f.db.Budgets().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "100", all[0].Limit.String())
	assert.Len(t, f.sync.Alerts(all), 1)

	_, err = f.sync.SetLimit(ctx, key, decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrNegativeLimit)
}
