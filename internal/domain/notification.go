package domain

import "time"

// Severity levels of feed notifications.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// Notification is one entry of the persisted notification feed.
type Notification struct {
	ID        string
	Type      string
	Severity  string
	Title     string
	Message   string
	Payload   map[string]any
	CreatedAt time.Time
	Read      bool
}

// Notification event types.
const (
	EventDocumentProcessed        = "document_processed"
	EventTransactionAdded         = "transaction_added"
	EventDocumentProcessingFailed = "document_processing_failed"
	EventBatchProcessingComplete  = "batch_processing_complete"
	EventBudgetSyncFailed         = "budget_sync_failed"
	EventBudgetWarning            = "budget_warning"
	EventBudgetExceeded           = "budget_exceeded"
)
