package pipeline

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/classifier"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/notify"
)

// TextExtractor turns a stored file into raw text.
// An empty string with a nil error means the file held no text.
type TextExtractor interface {
	Extract(ctx context.Context, path, fileType string) (string, error)
}

// FieldExtractor parses structured fields out of raw text.
// It returns nil, nil when nothing usable was found.
type FieldExtractor interface {
	ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error)
}

// Classifier predicts a category name for a vendor and document text.
type Classifier interface {
	PredictCategory(ctx context.Context, vendor, text string) (classifier.Prediction, error)
}

// BudgetSyncer recomputes the budgets a transaction contributes to.
type BudgetSyncer interface {
	SyncTransaction(ctx context.Context, tx *domain.Transaction, old *budget.Previous) ([]*domain.Budget, error)
	Alerts(budgets []*domain.Budget) []budget.Alert
}

// Notifier delivers notification events. Implementations never fail.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

var (
	_ BudgetSyncer = (*budget.Synchronizer)(nil)
	_ Notifier     = (*notify.Dispatcher)(nil)
	_ Classifier   = (*classifier.Classifier)(nil)
)
