package notify

import (
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

// DocumentProcessed reports a processed document and how many transactions it produced.
func DocumentProcessed(doc *domain.Document, transactionCount int) Event {
	return Event{
		Type:     domain.EventDocumentProcessed,
		Severity: domain.SeveritySuccess,
		Title:    "Document processed",
		Message:  fmt.Sprintf("%s processed, %d transaction(s) created", doc.OriginalFilename, transactionCount),
		Payload: map[string]any{
			"document_id":       doc.ID,
			"filename":          doc.OriginalFilename,
			"transaction_count": transactionCount,
		},
	}
}

// TransactionAdded reports a transaction created from a document.
func TransactionAdded(tx *domain.Transaction, categoryName string, confidence float64) Event {
	payload := map[string]any{
		"transaction_id": tx.ID,
		"vendor":         tx.VendorName,
		"amount":         tx.Amount.String(),
		"currency":       tx.Currency,
		"date":           tx.Date.String(),
		"category":       categoryName,
		"confidence":     confidence,
	}
	if tx.DocumentID != nil {
		payload["document_id"] = *tx.DocumentID
	}
	return Event{
		Type:     domain.EventTransactionAdded,
		Severity: domain.SeverityInfo,
		Title:    "Transaction added",
		Message:  fmt.Sprintf("%s %s at %s (%s)", tx.Currency, tx.Amount.StringFixed(2), tx.VendorName, categoryName),
		Payload:  payload,
	}
}

// DocumentProcessingFailed reports a document that could not be processed.
func DocumentProcessingFailed(documentID, reason string) Event {
	return Event{
		Type:     domain.EventDocumentProcessingFailed,
		Severity: domain.SeverityDanger,
		Title:    "Document processing failed",
		Message:  reason,
		Payload: map[string]any{
			"document_id": documentID,
			"error":       reason,
		},
	}
}

// BatchProcessingComplete summarizes a batch run.
func BatchProcessingComplete(succeeded, failed, transactions int) Event {
	return Event{
		Type:     domain.EventBatchProcessingComplete,
		Severity: domain.SeveritySuccess,
		Title:    "Batch processing complete",
		Message: fmt.Sprintf("Processed %d document(s), %d failed, %d transaction(s) created",
			succeeded, failed, transactions),
		Payload: map[string]any{
			"succeeded":          succeeded,
			"failed":             failed,
			"total_transactions": transactions,
		},
	}
}

// BudgetSyncFailed reports that budgets could not be recomputed after a commit.
func BudgetSyncFailed(documentID string, err error) Event {
	return Event{
		Type:     domain.EventBudgetSyncFailed,
		Severity: domain.SeverityWarning,
		Title:    "Budget sync failed",
		Message:  fmt.Sprintf("Budgets may be stale until the next full sync: %v", err),
		Payload: map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		},
	}
}

// BudgetAlert reports a budget at or beyond a threshold.
func BudgetAlert(a budget.Alert, categoryName string) Event {
	ev := Event{
		Type:     a.Type,
		Severity: domain.SeverityWarning,
		Title:    "Budget warning",
		Message:  a.Message(categoryName),
		Payload: map[string]any{
			"budget_id":   a.Budget.ID,
			"category_id": a.Budget.CategoryID,
			"category":    categoryName,
			"period":      a.Budget.Period.String(),
			"limit":       a.Budget.Limit.String(),
			"spent":       a.Budget.Spent.String(),
			"percent":     a.Percent,
		},
	}
	if a.Type == domain.EventBudgetExceeded {
		ev.Severity = domain.SeverityDanger
		ev.Title = "Budget exceeded"
	}
	return ev
}
