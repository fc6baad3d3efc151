package worker

import (
	"context"
	"log/slog"
	"time"

	audit "donorhub/pkg/platform/audit"
)

const defaultBuffer = 256

// FailureRecorder counts events that could not be delivered.
type FailureRecorder interface {
	IncrementAuditPublishFailure(sink string)
}

// Worker decouples request handling from audit sinks. Emit enqueues without
// blocking; Run delivers queued events to the sink until the context ends,
// then drains whatever is still buffered.
type Worker struct {
	sink    audit.Publisher
	inbox   chan audit.Event
	logger  *slog.Logger
	metrics FailureRecorder
	drain   time.Duration
}

type Option func(*Worker)

func WithBuffer(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.inbox = make(chan audit.Event, n)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m FailureRecorder) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithDrainTimeout bounds how long Run keeps delivering after cancellation.
func WithDrainTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.drain = d
	}
}

func NewWorker(sink audit.Publisher, opts ...Option) *Worker {
	w := &Worker{
		sink:   sink,
		inbox:  make(chan audit.Event, defaultBuffer),
		logger: slog.Default(),
		drain:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Emit queues the event. A full queue drops the event and records a failure
// rather than stalling the caller.
func (w *Worker) Emit(ctx context.Context, event audit.Event) error {
	select {
	case w.inbox <- event:
	default:
		w.logger.WarnContext(ctx, "audit queue full, dropping event", "action", event.Action)
		w.recordFailure("queue")
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drain)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event audit.Event) {
	if err := w.sink.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to deliver audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
		w.recordFailure("sink")
	}
}

func (w *Worker) recordFailure(sink string) {
	if w.metrics != nil {
		w.metrics.IncrementAuditPublishFailure(sink)
	}
}
