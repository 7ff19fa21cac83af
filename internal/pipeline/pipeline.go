// Package pipeline turns uploaded documents into categorized transactions and
// propagates them into budgets and the notification feed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/notify"
	"github.com/dvloznov/finance-ingest/internal/store"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Orchestrator processes documents end to end.
type Orchestrator struct {
	db       store.Database
	budgets  BudgetSyncer
	notifier Notifier
	now      func() time.Time
	currency string
	locks    *locker

	text       TextExtractor
	fields     FieldExtractor
	classifier Classifier
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used for timestamps and missing dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCurrency sets the currency of created transactions.
func WithCurrency(currency string) Option {
	return func(o *Orchestrator) { o.currency = currency }
}

// WithNotifier sets where notification events go.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithBudgetSyncer replaces the default budget synchronizer.
func WithBudgetSyncer(b BudgetSyncer) Option {
	return func(o *Orchestrator) { o.budgets = b }
}

// NewOrchestrator wires the collaborators of the ingestion pipeline.
func NewOrchestrator(db store.Database, text TextExtractor, fields FieldExtractor, cls Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:         db,
		notifier:   notify.NewDispatcher(),
		now:        time.Now,
		currency:   domain.DefaultCurrency,
		locks:      newLocker(),
		text:       text,
		fields:     fields,
		classifier: cls,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.budgets == nil {
		o.budgets = budget.NewSynchronizer(db, budget.WithClock(o.now))
	}
	return o
}

// newDocumentPipeline creates the per-document step chain.
func (o *Orchestrator) newDocumentPipeline() *Pipeline {
	return NewPipeline(
		&ExtractTextStep{Extractor: o.text},
		&BeginSessionStep{DB: o.db},
		&ExtractFieldsStep{Extractor: o.fields},
		&CategorizeStep{Classifier: o.classifier},
		&MaterializeStep{Currency: o.currency, Now: o.now},
		&MarkProcessedStep{Now: o.now},
		&CommitStep{},
	)
}

// ProcessDocument runs one document through the pipeline. It never panics
// and never returns an error: every outcome is reported in the Result.
func (o *Orchestrator) ProcessDocument(ctx context.Context, documentID string) Result {
	log := logger.FromContext(ctx).With().Str("document_id", documentID).Logger()
	ctx = logger.WithContext(ctx, log)

	if !o.locks.TryLock(documentID) {
		log.Warn().Msg("Document is already being processed")
		return Result{DocumentID: documentID, Outcome: HardFailure, Message: MsgAlreadyProcessing}
	}
	defer o.locks.Unlock(documentID)

	doc, err := o.db.Documents().Get(ctx, documentID)
	if err != nil {
		return o.fail(ctx, &PipelineState{Stage: StageUploaded}, documentID, fmt.Errorf("ProcessDocument: loading document: %w", err))
	}
	if doc == nil {
		return Result{DocumentID: documentID, Outcome: NotFound, Message: MsgDocumentNotFound}
	}
	if doc.Processed {
		return Result{DocumentID: documentID, Outcome: AlreadyProcessed, Message: MsgAlreadyProcessed, Stage: StageProcessed}
	}

	log.Info().Str("filename", doc.OriginalFilename).Str("file_type", doc.FileType).Msg("Processing document")

	state := &PipelineState{Document: doc, Stage: StageUploaded}
	if err := o.run(ctx, state); err != nil {
		return o.fail(ctx, state, documentID, err)
	}
	return o.finish(ctx, state)
}

// run executes the pipeline, converting panics to errors. The session is
// always rolled back on the way out; after a commit that is a no-op.
func (o *Orchestrator) run(ctx context.Context, state *PipelineState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during processing: %v", r)
		}
		if state.Session != nil {
			if rbErr := state.Session.Rollback(); rbErr != nil {
				log := logger.FromContext(ctx)
				log.Warn().Err(rbErr).Msg("Failed to roll back session")
			}
		}
	}()
	return o.newDocumentPipeline().Execute(ctx, state)
}

func (o *Orchestrator) fail(ctx context.Context, state *PipelineState, documentID string, err error) Result {
	log := logger.FromContext(ctx)
	msg := state.Failure
	if msg == "" {
		msg = err.Error()
	}

	if errors.Is(err, ErrExtraction) {
		log.Warn().Err(err).Msg("Text extraction failed")
	} else {
		log.Error().Err(err).Str("stage", string(state.Stage)).Msg("Error processing document")
	}
	o.notifier.Notify(ctx, notify.DocumentProcessingFailed(documentID, msg))
	return Result{DocumentID: documentID, Outcome: HardFailure, Message: msg, Err: err, Stage: state.Stage}
}

// finish runs the post-commit work: budget sync and notifications.
func (o *Orchestrator) finish(ctx context.Context, state *PipelineState) Result {
	log := logger.FromContext(ctx)
	doc := state.Document
	res := Result{DocumentID: doc.ID, Stage: state.Stage}

	if state.Fields == nil {
		res.Outcome = SoftFailure
		res.Message = MsgNoFields
		log.Info().Msg(MsgNoFields)
		return res
	}

	res.Confidence = state.Prediction.Confidence
	categoryName := ""
	if state.Category != nil {
		categoryName = state.Category.Name
		res.Category = categoryName
	}

	tx := state.Transaction
	var budgets []*domain.Budget
	if tx != nil {
		var err error
		budgets, err = o.budgets.SyncTransaction(ctx, tx, nil)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Budget sync failed, budgets stale until next full sync")
			res.Warnings = append(res.Warnings, fmt.Sprintf("budget sync failed: %v", err))
			o.notifier.Notify(ctx, notify.BudgetSyncFailed(doc.ID, err))
		}
	}

	count := 0
	if tx != nil {
		count = 1
	}
	o.notifier.Notify(ctx, notify.DocumentProcessed(doc, count))

	if tx == nil {
		res.Outcome = SoftFailure
		res.Message = MsgNoAmount
		return res
	}

	o.notifier.Notify(ctx, notify.TransactionAdded(tx, categoryName, state.Prediction.Confidence))
	for _, a := range o.budgets.Alerts(budgets) {
		o.notifier.Notify(ctx, notify.BudgetAlert(a, categoryName))
	}

	if len(state.Duplicates) > 0 {
		ids := make([]string, 0, len(state.Duplicates))
		for _, d := range state.Duplicates {
			ids = append(ids, d.ID)
		}
		log.Warn().
			Str("transaction_id", tx.ID).
			Strs("duplicate_of", ids).
			Msg("Possible duplicate transaction")
		res.Warnings = append(res.Warnings, fmt.Sprintf("possible duplicate of %d earlier transaction(s): %s",
			len(ids), strings.Join(ids, ", ")))
	}

	log.Info().
		Str("transaction_id", tx.ID).
		Str("vendor", tx.VendorName).
		Str("amount", tx.Amount.String()).
		Str("category", categoryName).
		Msg("Transaction created")

	res.Outcome = Success
	res.Message = MsgProcessed
	res.TransactionID = tx.ID
	return res
}

// ProcessDocuments processes ids one after another. A failing document does
// not stop the batch.
func (o *Orchestrator) ProcessDocuments(ctx context.Context, ids []string) BatchResult {
	log := logger.FromContext(ctx)
	var batch BatchResult

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			batch.Failed = append(batch.Failed, FailedDocument{ID: id, Error: err.Error()})
			continue
		}

		res := o.ProcessDocument(ctx, id)
		if !res.OK() {
			batch.Failed = append(batch.Failed, FailedDocument{ID: id, Error: res.Message})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, id)

		n, err := o.db.Transactions().CountByDocument(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("Failed to count transactions")
			continue
		}
		batch.TotalTransactions += n
	}

	log.Info().
		Int("succeeded", len(batch.Succeeded)).
		Int("failed", len(batch.Failed)).
		Int("total_transactions", batch.TotalTransactions).
		Msg("Batch processing complete")

	if len(batch.Succeeded) > 0 {
		o.notifier.Notify(ctx, notify.BatchProcessingComplete(len(batch.Succeeded), len(batch.Failed), batch.TotalTransactions))
	}
	return batch
}

// ProcessPending processes every document not yet marked processed.
func (o *Orchestrator) ProcessPending(ctx context.Context) (BatchResult, error) {
	docs, err := o.db.Documents().ListUnprocessed(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("ProcessPending: listing documents: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return o.ProcessDocuments(ctx, ids), nil
}
