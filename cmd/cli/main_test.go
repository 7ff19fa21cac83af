package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/config"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FINGEST_DATABASE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("FINGEST_STORAGE_UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("FINGEST_CLASSIFIER_MODEL_PATH", filepath.Join(dir, "model.json"))
	t.Setenv("FINGEST_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func openApp(t *testing.T) *app.App {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestImportAndSetBudget(t *testing.T) {
	setupEnv(t)
	csvPath := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"date,amount,vendor,category\n"+
			"2024-03-02,120,Big Bazaar,Groceries\n"+
			"2024-03-05,30.50,Fresh Mart,Groceries\n"+
			"not-a-date,10,Broken,Groceries\n"), 0o644))

	require.NoError(t, execute(t, "transactions", "import", csvPath))
	require.NoError(t, execute(t, "budgets", "set", "Groceries", "--period", "2024-03", "--limit", "500"))

	a := openApp(t)
	ctx := context.Background()
	cat, err := a.DB.Categories().GetByName(ctx, "Groceries")
	require.NoError(t, err)
	require.NotNil(t, cat)

	b, err := a.DB.Budgets().Find(ctx, domain.BudgetKey{
		CategoryID: cat.ID,
		Period:     domain.Period{Year: 2024, Month: time.March},
	})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "500", b.Limit.String())
	assert.Equal(t, "150.5", b.Spent.String())
}

func TestTransactionsUpdate_OnlyChangedFlags(t *testing.T) {
	setupEnv(t)
	require.NoError(t, execute(t, "transactions", "add",
		"--amount", "42", "--vendor", "Old Vendor", "--category", "Groceries", "--date", "2024-03-04"))

	a := openApp(t)
	ctx := context.Background()
	txs, err := a.DB.Transactions().List(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	id := txs[0].ID

	require.NoError(t, execute(t, "transactions", "update", id, "--vendor", "New Vendor"))

	got, err := a.DB.Transactions().Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New Vendor", got.VendorName)
	assert.Equal(t, "42", got.Amount.String())
	assert.Equal(t, "2024-03-04", got.Date.String())
	assert.Equal(t, txs[0].CategoryID, got.CategoryID)
}

func TestTransactionsDelete_Many(t *testing.T) {
	setupEnv(t)
	csvPath := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"date,amount,vendor,category\n"+
			"2024-03-02,120,Big Bazaar,Groceries\n"+
			"2024-03-05,30.50,Fresh Mart,Groceries\n"+
			"2024-03-07,9,Corner Shop,Groceries\n"), 0o644))
	require.NoError(t, execute(t, "transactions", "import", csvPath))

	a := openApp(t)
	ctx := context.Background()
	txs, err := a.DB.Transactions().List(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	require.NoError(t, execute(t, "transactions", "delete", txs[0].ID, txs[1].ID, "missing"))

	left, err := a.DB.Transactions().List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, txs[2].ID, left[0].ID)
}

func TestBudgetsSet_UnknownCategory(t *testing.T) {
	setupEnv(t)
	err := execute(t, "budgets", "set", "Nope", "--period", "2024-03", "--limit", "10")
	assert.ErrorContains(t, err, `unknown category "Nope"`)
}

func TestExport_RequiresTarget(t *testing.T) {
	setupEnv(t)
	err := execute(t, "export")
	assert.ErrorContains(t, err, "nothing to export")
}
