package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// PendingLister lists documents that still need processing.
type PendingLister interface {
	ListUnprocessed(ctx context.Context) ([]*domain.Document, error)
}

const defaultPollInterval = 30 * time.Second

// Poller periodically publishes a job for every unprocessed document.
// Documents whose last job failed for good are not republished.
type Poller struct {
	docs      PendingLister
	publisher Publisher
	store     JobStore
	interval  time.Duration
}

// NewPoller creates a poller. store may be nil, in which case failed
// documents are republished on every poll.
func NewPoller(docs PendingLister, publisher Publisher, store JobStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{docs: docs, publisher: publisher, store: store, interval: interval}
}

// Poll publishes jobs for pending documents once and returns how many were
// published.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	docs, err := p.docs.ListUnprocessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("Poll: listing pending documents: %w", err)
	}

	published := 0
	for _, doc := range docs {
		failed, err := p.exhausted(ctx, doc.ID)
		if err != nil {
			return published, fmt.Errorf("Poll: %w", err)
		}
		if failed {
			continue
		}

		err = p.publisher.PublishProcessDocument(ctx, &ProcessDocumentJob{DocumentID: doc.ID})
		switch {
		case errors.Is(err, ErrAlreadyQueued):
			continue
		case err != nil:
			return published, fmt.Errorf("Poll: publishing %s: %w", doc.ID, err)
		}
		published++
	}
	return published, nil
}

func (p *Poller) exhausted(ctx context.Context, documentID string) (bool, error) {
	if p.store == nil {
		return false, nil
	}
	failed, err := p.store.ListJobs(ctx, JobFilter{DocumentID: documentID, Status: JobStatusFailed, Limit: 1})
	if err != nil {
		return false, fmt.Errorf("listing jobs for %s: %w", documentID, err)
	}
	return len(failed) > 0, nil
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Polling for pending documents failed")
		} else if n > 0 {
			log.Info().Int("published", n).Msg("Queued pending documents")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
