package pipeline

import "errors"

// ErrExtraction marks a failure to turn the stored file into text.
var ErrExtraction = errors.New("pipeline: extraction failed")

// Result messages.
const (
	MsgDocumentNotFound  = "Document not found"
	MsgAlreadyProcessed  = "Document already processed"
	MsgAlreadyProcessing = "Document is already being processed"
	MsgNoText            = "No text extracted from document"
	MsgNoFields          = "Could not extract data from text"
	MsgNoAmount          = "No amount found, transaction not created"
	MsgProcessed         = "Document processed successfully"
)

// Outcome classifies how a processing attempt ended.
type Outcome int

const (
	// Success: the document is processed and a transaction was created.
	Success Outcome = iota
	// SoftFailure: the document is processed but produced no transaction.
	// It is not retried.
	SoftFailure
	// HardFailure: nothing was persisted and the document stays eligible
	// for a retry.
	HardFailure
	AlreadyProcessed
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	case AlreadyProcessed:
		return "already_processed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Stage is the furthest point of the document lifecycle an attempt reached.
type Stage string

const (
	StageUploaded           Stage = "uploaded"
	StageTextExtracted      Stage = "text_extracted"
	StageFieldsExtracted    Stage = "fields_extracted"
	StageCategorized        Stage = "categorized"
	StageTransactionCreated Stage = "transaction_created"
	StageTransactionSkipped Stage = "transaction_skipped"
	StageProcessed          Stage = "processed"
)

// Result is the outcome of processing one document.
type Result struct {
	DocumentID string
	Outcome    Outcome
	Message    string
	Err        error
	Stage      Stage

	TransactionID string
	Category      string
	Confidence    float64

	// Warnings are problems that did not undo the commit, such as a failed
	// budget sync or a likely duplicate.
	Warnings []string
}

// OK reports whether the attempt fully succeeded.
func (r Result) OK() bool {
	return r.Outcome == Success
}

// FailedDocument is a batch entry that did not succeed.
type FailedDocument struct {
	ID    string
	Error string
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Succeeded         []string
	Failed            []FailedDocument
	TotalTransactions int
}
