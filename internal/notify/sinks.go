package notify

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/store"
)

// FeedSink persists events to the notification feed.
type FeedSink struct {
	repo store.NotificationRepository
}

// NewFeedSink creates a sink writing through repo, outside any session.
func NewFeedSink(repo store.NotificationRepository) *FeedSink {
	return &FeedSink{repo: repo}
}

func (s *FeedSink) Send(ctx context.Context, ev Event) error {
	return s.repo.Add(ctx, ev.Notification())
}

// LogSink writes events to the context logger.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, ev Event) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("event_type", ev.Type).
		Str("severity", ev.Severity).
		Fields(ev.Payload).
		Msg(ev.Title)
	return nil
}
