package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ingest/internal/classifier"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/store"
)

var errNoText = errors.New(MsgNoText)

// duplicateLimit caps how many earlier transactions are reported as possible
// duplicates of a new one.
const duplicateLimit = 5

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Document *domain.Document
	Session  store.Session

	Text        string
	Fields      *domain.ExtractedFields
	Prediction  classifier.Prediction
	Category    *domain.Category
	Transaction *domain.Transaction
	// Duplicates are earlier transactions with the same vendor and amount.
	Duplicates []*domain.Transaction

	Stage Stage
	// Failure is the message reported for a failed step, when it differs
	// from the error text.
	Failure string
}

// Step 1: ExtractTextStep reads the stored file into text. Nothing is
// written yet, so failures here leave no trace.
type ExtractTextStep struct {
	Extractor TextExtractor
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	doc := state.Document
	text, err := s.Extractor.Extract(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		state.Failure = err.Error()
		return fmt.Errorf("ExtractTextStep: %w: %w", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		state.Failure = MsgNoText
		return fmt.Errorf("ExtractTextStep: %w: %w", ErrExtraction, errNoText)
	}

	state.Text = text
	state.Stage = StageTextExtracted
	log := logger.FromContext(ctx)
	log.Debug().Int("chars", len(text)).Msg("Extracted text")
	return nil
}

// Step 2: BeginSessionStep opens the session the remaining steps write to.
type BeginSessionStep struct {
	DB store.Database
}

func (s *BeginSessionStep) Execute(ctx context.Context, state *PipelineState) error {
	sess, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("BeginSessionStep: %w", err)
	}
	state.Session = sess
	return nil
}

// Step 3: ExtractFieldsStep records the raw text and parses fields from it.
// A nil result leaves state.Fields nil and the following steps skip.
type ExtractFieldsStep struct {
	Extractor FieldExtractor
}

func (s *ExtractFieldsStep) Execute(ctx context.Context, state *PipelineState) error {
	text := state.Text
	state.Document.RawText = &text

	f, err := s.Extractor.ExtractAll(ctx, text)
	if err != nil {
		return fmt.Errorf("ExtractFieldsStep: %w", err)
	}
	state.Fields = f
	if f != nil {
		state.Stage = StageFieldsExtracted
	}
	return nil
}

// Step 4: CategorizeStep predicts and resolves the category.
type CategorizeStep struct {
	Classifier Classifier
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Fields == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	vendor := state.Fields.VendorOrUnknown()
	pred, err := s.Classifier.PredictCategory(ctx, vendor, state.Text)
	if err != nil {
		log.Warn().Err(err).Msg("Classifier failed, using fallback category")
		pred = classifier.Prediction{Category: domain.FallbackCategory}
	}
	state.Prediction = pred

	cats := state.Session.Categories()
	cat, err := cats.GetByName(ctx, pred.Category)
	if err != nil {
		return fmt.Errorf("CategorizeStep: resolving %q: %w", pred.Category, err)
	}
	if cat == nil {
		if cat, err = cats.GetByName(ctx, domain.FallbackCategory); err != nil {
			return fmt.Errorf("CategorizeStep: resolving fallback: %w", err)
		}
	}
	state.Category = cat
	state.Stage = StageCategorized

	log.Info().
		Str("vendor", vendor).
		Str("category", pred.Category).
		Float64("confidence", pred.Confidence).
		Msg("Categorized document")
	return nil
}

// Step 5: MaterializeStep adds the transaction to the session, if any.
type MaterializeStep struct {
	Currency string
	Now      func() time.Time
}

func (s *MaterializeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Fields == nil {
		return nil
	}
	now := s.Now()
	tx, err := materialize(state.Document, state.Fields, state.Category, Defaults{
		Currency: s.Currency,
		Today:    civil.DateOf(now),
		Now:      now,
	})
	if err != nil {
		return fmt.Errorf("MaterializeStep: %w", err)
	}
	if tx == nil {
		state.Stage = StageTransactionSkipped
		log := logger.FromContext(ctx)
		log.Info().Msg("No amount found, transaction not created")
		return nil
	}

	if tx.VendorName != domain.UnknownVendor {
		dups, err := state.Session.Transactions().FindDuplicates(ctx, tx.VendorName, tx.Amount, duplicateLimit)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Duplicate check failed")
		}
		state.Duplicates = dups
	}

	if err := state.Session.Transactions().Add(ctx, tx); err != nil {
		return fmt.Errorf("MaterializeStep: adding transaction: %w", err)
	}
	state.Transaction = tx
	state.Stage = StageTransactionCreated
	return nil
}

// Step 6: MarkProcessedStep flags the document as done.
type MarkProcessedStep struct {
	Now func() time.Time
}

func (s *MarkProcessedStep) Execute(ctx context.Context, state *PipelineState) error {
	doc := state.Document
	now := s.Now()
	doc.Processed = true
	doc.ProcessedAt = &now
	if err := state.Session.Documents().Update(ctx, doc); err != nil {
		return fmt.Errorf("MarkProcessedStep: %w", err)
	}
	return nil
}

// Step 7: CommitStep commits the document and its transaction together.
type CommitStep struct{}

func (s *CommitStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := state.Session.Commit(); err != nil {
		return fmt.Errorf("CommitStep: %w", err)
	}
	state.Stage = StageProcessed
	return nil
}
