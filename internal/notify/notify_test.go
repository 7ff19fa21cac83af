package notify

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/store/sqlite"
)

// recordingSink collects events for assertions.
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Send(ctx context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestDispatcher_StampsAndFansOut(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a, b := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(a, b).WithClock(func() time.Time { return now })

	d.Notify(context.Background(), Event{Type: domain.EventDocumentProcessed, Title: "t"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.NotEmpty(t, a.events[0].ID)
	assert.Equal(t, a.events[0].ID, b.events[0].ID)
	assert.Equal(t, now, a.events[0].OccurredAt)
	assert.Equal(t, domain.SeverityInfo, a.events[0].Severity)
}

func TestDispatcher_SwallowsErrorsAndPanics(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	failing := SinkFunc(func(ctx context.Context, ev Event) error { return errors.New("sink down") })
	panicking := SinkFunc(func(ctx context.Context, ev Event) error { panic("boom") })
	after := &recordingSink{}

	assert.NotPanics(t, func() {
		NewDispatcher(failing, panicking, after).Notify(ctx, Event{Type: "x"})
	})
	assert.Len(t, after.events, 1)
	assert.Contains(t, buf.String(), "sink down")
	assert.Contains(t, buf.String(), "Notification sink panicked")
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() { d.Notify(context.Background(), Event{}) })
}

func TestFeedSink_Persists(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := NewDispatcher(NewFeedSink(db.Notifications()))
	doc := &domain.Document{ID: "doc-1", OriginalFilename: "receipt.pdf"}
	d.Notify(ctx, DocumentProcessed(doc, 1))

	feed, err := db.Notifications().ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, domain.EventDocumentProcessed, feed[0].Type)
	assert.Equal(t, domain.SeveritySuccess, feed[0].Severity)
	assert.EqualValues(t, 1, feed[0].Payload["transaction_count"])
	assert.Equal(t, "doc-1", feed[0].Payload["document_id"])
}

func TestLogSink(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	require.NoError(t, LogSink{}.Send(ctx, DocumentProcessingFailed("doc-9", "No text extracted from document")))
	assert.Contains(t, buf.String(), `"event_type":"document_processing_failed"`)
	assert.Contains(t, buf.String(), `"document_id":"doc-9"`)
}

func TestEvents(t *testing.T) {
	docID := "doc-1"
	tx := &domain.Transaction{
		ID:         "tx-1",
		DocumentID: &docID,
		Date:       civil.Date{Year: 2024, Month: 3, Day: 15},
		Amount:     decimal.NewFromInt(1200),
		Currency:   "INR",
		VendorName: "Acme",
	}

	ev := TransactionAdded(tx, "Other", 12.5)
	assert.Equal(t, domain.EventTransactionAdded, ev.Type)
	assert.Equal(t, "INR 1200.00 at Acme (Other)", ev.Message)
	assert.Equal(t, "doc-1", ev.Payload["document_id"])
	assert.Equal(t, 12.5, ev.Payload["confidence"])

	batch := BatchProcessingComplete(2, 1, 3)
	assert.Equal(t, domain.EventBatchProcessingComplete, batch.Type)
	assert.Equal(t, 3, batch.Payload["total_transactions"])

	b := &domain.Budget{ID: "b", CategoryID: "c", Period: domain.Period{Year: 2024, Month: time.March},
		Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(90)}
	warn := BudgetAlert(budget.Alert{Type: domain.EventBudgetWarning, Budget: b, Percent: 90}, "Groceries")
	assert.Equal(t, domain.SeverityWarning, warn.Severity)
	assert.Equal(t, "2024-03", warn.Payload["period"])

	over := BudgetAlert(budget.Alert{Type: domain.EventBudgetExceeded, Budget: b, Percent: 120}, "Groceries")
	assert.Equal(t, domain.SeverityDanger, over.Severity)
	assert.Equal(t, "Budget exceeded", over.Title)

	failed := BudgetSyncFailed("doc-1", errors.New("locked"))
	assert.Equal(t, domain.EventBudgetSyncFailed, failed.Type)
	assert.Equal(t, domain.SeverityWarning, failed.Severity)
}
