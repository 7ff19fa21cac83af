// Package notify fans notification events out to sinks. Delivery is best
// effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// Event is one notification about something the system did.
type Event struct {
	ID         string
	Type       string
	Severity   string
	Title      string
	Message    string
	Payload    map[string]any
	OccurredAt time.Time
}

// Notification converts the event to a feed entry.
func (e Event) Notification() *domain.Notification {
	return &domain.Notification{
		ID:        e.ID,
		Type:      e.Type,
		Severity:  e.Severity,
		Title:     e.Title,
		Message:   e.Message,
		Payload:   e.Payload,
		CreatedAt: e.OccurredAt,
	}
}

// Sink delivers events somewhere.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Dispatcher sends every event to all sinks.
type Dispatcher struct {
	sinks []Sink
	now   func() time.Time
}

// NewDispatcher creates a dispatcher over sinks. A dispatcher without sinks
// drops events.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, now: time.Now}
}

// WithClock overrides the clock stamping events.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Notify stamps ev and delivers it to each sink, recovering sink panics.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.now()
	}
	if ev.Severity == "" {
		ev.Severity = domain.SeverityInfo
	}
	for _, s := range d.sinks {
		d.send(ctx, s, ev)
	}
}

func (d *Dispatcher) send(ctx context.Context, s Sink, ev Event) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("event_type", ev.Type).
				Str("sink", fmt.Sprintf("%T", s)).
				Interface("panic", r).
				Msg("Notification sink panicked")
		}
	}()
	if err := s.Send(ctx, ev); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", ev.Type).
			Str("sink", fmt.Sprintf("%T", s)).
			Msg("Failed to deliver notification")
	}
}
