// Package app wires configuration into the running components shared by the
// CLI and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ingest/internal/budget"
	"github.com/dvloznov/finance-ingest/internal/classifier"
	"github.com/dvloznov/finance-ingest/internal/config"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/extract/fields"
	"github.com/dvloznov/finance-ingest/internal/extract/text"
	"github.com/dvloznov/finance-ingest/internal/filestore"
	infra "github.com/dvloznov/finance-ingest/internal/infra/bigquery"
	"github.com/dvloznov/finance-ingest/internal/ledger"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/notify"
	"github.com/dvloznov/finance-ingest/internal/notionsync"
	"github.com/dvloznov/finance-ingest/internal/pipeline"
	"github.com/dvloznov/finance-ingest/internal/store"
	"github.com/dvloznov/finance-ingest/internal/store/sqlite"
)

// App holds the wired components. Optional integrations are nil when not
// configured.
type App struct {
	Config *config.Config

	DB           *sqlite.DB
	Files        filestore.FileStore
	Models       *classifier.Cache
	Budgets      *budget.Synchronizer
	Notifier     *notify.Dispatcher
	Orchestrator *pipeline.Orchestrator
	Ledger       *ledger.Service

	Warehouse *infra.Warehouse
	Notion    notionsync.NotionService

	closers []io.Closer
}

// New opens the database and builds every component from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{Config: cfg}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.DB = db
	if n, err := store.SeedCategories(ctx, db); err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	} else if n > 0 {
		log.Info().Int("categories", n).Msg("Seeded default categories")
	}

	files, closer, err := filestore.Open(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: opening file store: %w", err)
	}
	a.Files = files
	a.closers = append(a.closers, closer)

	fieldExtractor, err := a.fieldExtractor(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks := []notify.Sink{notify.NewFeedSink(db.Notifications()), notify.LogSink{}}
	if cfg.BigQueryEnabled() {
		w, err := infra.NewWarehouse(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Warehouse = w
		a.closers = append(a.closers, w)
		sinks = append(sinks, infra.NewNotificationSink(w))
	}
	if cfg.Notion.Token != "" {
		a.Notion = notionsync.NewClient(cfg.Notion.Token, cfg.Notion.DatabaseID, cfg.Notion.NotificationsDatabaseID)
		if cfg.Notion.NotificationsDatabaseID != "" {
			sinks = append(sinks, notionsync.NewNotificationSink(a.Notion))
		}
	}
	a.Notifier = notify.NewDispatcher(sinks...)

	a.Models = classifier.NewCache(cfg.Classifier.ModelPath)
	a.Budgets = budget.NewSynchronizer(db,
		budget.WithAutoCreate(cfg.Budget.AutoCreate),
		budget.WithThresholds(budget.Thresholds{
			Warning:  cfg.Budget.WarningPercent,
			Exceeded: cfg.Budget.ExceededPercent,
		}),
	)
	a.Orchestrator = pipeline.NewOrchestrator(db,
		text.New(files, text.WithTesseract(cfg.Extraction.TesseractPath)),
		fieldExtractor,
		classifier.New(a.Models),
		pipeline.WithCurrency(cfg.DefaultCurrency),
		pipeline.WithNotifier(a.Notifier),
		pipeline.WithBudgetSyncer(a.Budgets),
	)
	a.Ledger = ledger.NewService(db, a.Budgets,
		ledger.WithNotifier(a.Notifier),
		ledger.WithCurrency(cfg.DefaultCurrency),
	)
	return a, nil
}

// fieldExtractor returns Gemini backed by the regex rules when enabled,
// otherwise the regex rules alone.
func (a *App) fieldExtractor(ctx context.Context) (pipeline.FieldExtractor, error) {
	regex := fields.NewRegexExtractor()
	ex := a.Config.Extraction
	if !ex.GeminiEnabled {
		return regex, nil
	}
	gemini, err := fields.NewGeminiClientExtractor(ctx, ex.GeminiModel, ex.GeminiProject, ex.GeminiLocation)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	return fields.NewChain(gemini, regex), nil
}

// Upload stores a file and records it as an unprocessed document.
func (a *App) Upload(ctx context.Context, name string, data []byte) (*domain.Document, error) {
	name = filepath.Base(name)
	path, err := a.Files.Save(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("Upload: %w", err)
	}
	doc := &domain.Document{
		ID:               uuid.New().String(),
		StoragePath:      path,
		OriginalFilename: name,
		FileType:         filestore.FileType(name),
		UploadedAt:       time.Now(),
	}
	if err := a.DB.Documents().Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("Upload: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("document_id", doc.ID).
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Document uploaded")
	return doc, nil
}

// CategoryNames maps category ids to names.
func (a *App) CategoryNames(ctx context.Context) (map[string]string, error) {
	cats, err := a.DB.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryNames: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

// Close releases clients and the database.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
