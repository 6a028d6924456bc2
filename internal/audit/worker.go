package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrBufferFull is returned by ChannelSink when the fan-out buffer is
// saturated. Best-effort sinks drop rather than stall the decision path.
var ErrBufferFull = errors.New("audit fan-out buffer full")

// ChannelSink is a non-blocking Sink that hands events to a Worker. Pair it
// with a Worker draining Events() into a slow sink such as a broker.
type ChannelSink struct {
	inbox chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{inbox: make(chan Event, buffer)}
}

func (s *ChannelSink) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Events exposes the buffered stream for a Worker to drain.
func (s *ChannelSink) Events() <-chan Event {
	return s.inbox
}

// Worker consumes audit events from a channel and forwards them to a sink.
// It decouples best-effort fan-out (broker publishing, SIEM feeds) from the
// synchronous decision path. Delivery failures are logged, never retried.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit fan-out delivery failed",
					"action", event.Action,
					"requester_id", event.RequesterID,
					"error", err,
				)
			}
		}
	}
}
