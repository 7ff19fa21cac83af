package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/config"
	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/dvloznov/finance-ingest/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// stopper is the part of the queue shutdown needs.
type stopper interface {
	Stop(ctx context.Context) error
}

// drain stops polling, waits for in-flight jobs for up to timeout and only
// then cancels the context the jobs run under.
func drain(stopPolling context.CancelFunc, pollDone <-chan struct{}, q stopper, cancelJobs context.CancelFunc, timeout time.Duration) error {
	stopPolling()
	<-pollDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	defer cancelJobs()

	return q.Stop(shutdownCtx)
}

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log := logger.New(logger.Options{})
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Jobs run under ctx until the queue has drained; the poller gets its
	// own context so it can stop first.
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close application")
		}
	}()

	log.Info().Str("database", cfg.Database.Path).Msg("Starting worker service")

	// Budgets may be stale after a crash between commit and recompute.
	if n, err := a.Budgets.SyncAll(ctx); err != nil {
		log.Warn().Err(err).Int("budgets_updated", n).Msg("Startup budget sync incomplete")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore,
		inmemory.WithWorkers(cfg.Worker.Concurrency),
		inmemory.WithMaxRetries(cfg.Worker.MaxRetries),
	)

	if err := jobQueue.Start(ctx, jobs.ProcessDocumentHandler(a.Orchestrator)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	poller := jobs.NewPoller(a.DB.Documents(), jobQueue, jobStore, cfg.Worker.PollInterval)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		poller.Run(pollCtx)
	}()

	log.Info().
		Dur("poll_interval", cfg.Worker.PollInterval).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Worker service started, waiting for documents...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	if err := drain(stopPolling, pollDone, jobQueue, cancel, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
