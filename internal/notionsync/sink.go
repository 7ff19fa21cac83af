package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/notify"
)

// NotificationSink mirrors notification events as pages of a Notion database.
type NotificationSink struct {
	notion NotionService
}

var _ notify.Sink = (*NotificationSink)(nil)

// NewNotificationSink creates a sink writing to the notifications database.
func NewNotificationSink(notion NotionService) *NotificationSink {
	return &NotificationSink{notion: notion}
}

func (s *NotificationSink) Send(ctx context.Context, ev notify.Event) error {
	if err := s.notion.CreateNotificationPage(ctx, NotificationToNotionProperties(ev)); err != nil {
		return fmt.Errorf("NotificationSink.Send: %w", err)
	}
	return nil
}
