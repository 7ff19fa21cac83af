package bigquery

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/notify"
)

// NotificationInserter writes notification rows.
type NotificationInserter interface {
	InsertNotification(ctx context.Context, row *NotificationRow) error
}

var _ NotificationInserter = (*Warehouse)(nil)

// NotificationSink appends notification events to the warehouse.
type NotificationSink struct {
	inserter NotificationInserter
}

var _ notify.Sink = (*NotificationSink)(nil)

// NewNotificationSink creates a sink writing through inserter.
func NewNotificationSink(inserter NotificationInserter) *NotificationSink {
	return &NotificationSink{inserter: inserter}
}

func (s *NotificationSink) Send(ctx context.Context, ev notify.Event) error {
	row, err := NewNotificationRow(ev)
	if err != nil {
		return fmt.Errorf("NotificationSink.Send: encoding payload: %w", err)
	}
	return s.inserter.InsertNotification(ctx, row)
}
