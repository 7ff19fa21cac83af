// Package bigquery exports ledger data to a BigQuery dataset and reads
// aggregates back from it.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

const (
	transactionsTable  = "transactions"
	budgetsTable       = "budgets"
	notificationsTable = "notifications"

	insertBatchSize = 500
)

// Warehouse is the BigQuery export target. It holds a shared client to avoid
// creating a new connection for each operation.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewWarehouse creates a warehouse over projectID.datasetID.
func NewWarehouse(ctx context.Context, projectID, datasetID string) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{client: client, projectID: projectID, datasetID: datasetID, now: time.Now}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

func (w *Warehouse) table(name string) *bigquery.Table {
	return w.client.DatasetInProject(w.projectID, w.datasetID).Table(name)
}

func (w *Warehouse) qualified(name string) string {
	return "`" + w.projectID + "." + w.datasetID + "." + name + "`"
}

// ExportTransactions replaces the exported copies of txs and returns the
// number of rows written.
func (w *Warehouse) ExportTransactions(ctx context.Context, txs []*domain.Transaction, categoryNames map[string]string) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	now := w.now()
	ids := make([]string, 0, len(txs))
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
		rows = append(rows, NewTransactionRow(tx, categoryNames[tx.CategoryID], now))
	}

	if err := w.deleteByIDs(ctx, transactionsTable, "transaction_id", ids); err != nil {
		return 0, fmt.Errorf("ExportTransactions: %w", err)
	}
	if err := putBatched(ctx, w.table(transactionsTable).Inserter(), rows); err != nil {
		return 0, fmt.Errorf("ExportTransactions: %w", err)
	}
	return len(rows), nil
}

// ExportBudgets replaces the exported copies of budgets and returns the
// number of rows written.
func (w *Warehouse) ExportBudgets(ctx context.Context, budgets []*domain.Budget, categoryNames map[string]string) (int, error) {
	if len(budgets) == 0 {
		return 0, nil
	}

	now := w.now()
	ids := make([]string, 0, len(budgets))
	rows := make([]*BudgetRow, 0, len(budgets))
	for _, b := range budgets {
		ids = append(ids, b.ID)
		rows = append(rows, NewBudgetRow(b, categoryNames[b.CategoryID], now))
	}

	if err := w.deleteByIDs(ctx, budgetsTable, "budget_id", ids); err != nil {
		return 0, fmt.Errorf("ExportBudgets: %w", err)
	}
	if err := putBatched(ctx, w.table(budgetsTable).Inserter(), rows); err != nil {
		return 0, fmt.Errorf("ExportBudgets: %w", err)
	}
	return len(rows), nil
}

// InsertNotification appends one notification row.
func (w *Warehouse) InsertNotification(ctx context.Context, row *NotificationRow) error {
	if err := w.table(notificationsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertNotification: inserting row: %w", err)
	}
	return nil
}

// QuerySpendByCategory sums exported spend per category for one month.
func (w *Warehouse) QuerySpendByCategory(ctx context.Context, period domain.Period) ([]*CategorySpend, error) {
	q := w.client.Query(`
		SELECT
			category_name,
			SUM(amount) AS spent,
			COUNT(*) AS transactions
		FROM ` + w.qualified(transactionsTable) + `
		WHERE transaction_date BETWEEN @start_date AND @end_date
		GROUP BY category_name
		ORDER BY spent DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: period.Start()},
		{Name: "end_date", Value: period.End()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QuerySpendByCategory: running query: %w", err)
	}

	var out []*CategorySpend
	for {
		var row CategorySpend
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QuerySpendByCategory: reading row: %w", err)
		}
		out = append(out, &row)
	}
	return out, nil
}

func (w *Warehouse) deleteByIDs(ctx context.Context, table, column string, ids []string) error {
	q := w.client.Query(`
		DELETE FROM ` + w.qualified(table) + `
		WHERE ` + column + ` IN UNNEST(@ids)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: ids},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("deleting from %s: run query: %w", table, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("deleting from %s: wait for job: %w", table, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("deleting from %s: job failed: %w", table, err)
	}
	return nil
}

// rowPutter is satisfied by *bigquery.Inserter.
type rowPutter interface {
	Put(ctx context.Context, src interface{}) error
}

func putBatched[T any](ctx context.Context, ins rowPutter, rows []T) error {
	for i := 0; i < len(rows); i += insertBatchSize {
		end := min(i+insertBatchSize, len(rows))
		if err := ins.Put(ctx, rows[i:end]); err != nil {
			return fmt.Errorf("inserting rows %d-%d: %w", i, end, err)
		}
	}
	return nil
}
