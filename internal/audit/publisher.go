package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. The primary sink is written
// synchronously and fail-closed: if it cannot persist the event, the calling
// operation must fail rather than proceed unrecorded. Secondary sinks (broker
// fan-out, SIEM feeds) are best-effort and only logged on failure.
type Publisher struct {
	primary   Sink
	secondary []Sink
	logger    *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for secondary-sink error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSecondary adds a best-effort fan-out sink.
func WithSecondary(sink Sink) Option {
	return func(p *Publisher) {
		p.secondary = append(p.secondary, sink)
	}
}

func NewPublisher(primary Sink, opts ...Option) *Publisher {
	p := &Publisher{primary: primary}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists an event. Returns an error only when the primary sink fails;
// the caller MUST then fail its own operation.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.primary.Append(ctx, event); err != nil {
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	for _, sink := range p.secondary {
		if err := sink.Append(ctx, event); err != nil && p.logger != nil {
			p.logger.ErrorContext(ctx, "secondary audit sink failed",
				"action", event.Action,
				"requester_id", event.RequesterID,
				"error", err,
			)
		}
	}
	return nil
}
