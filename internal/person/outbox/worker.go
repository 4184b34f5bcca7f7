package outbox

import (
	"context"
	"log/slog"
	"time"

	"personvault/internal/person/metrics"
)

// Store is the outbox persistence used by the worker.
type Store interface {
	Relay(ctx context.Context, limit int, publish func(ctx context.Context, events []Event) error) (int, error)
}

// Publisher delivers a batch of events downstream.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// Worker relays unpublished outbox events to a Publisher until its context
// is cancelled.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batch     int
}

type WorkerOption func(*Worker)

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(store Store, publisher Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		logger:    slog.New(slog.DiscardHandler),
		interval:  defaultPollInterval,
		batch:     defaultPublishBatch,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox, then polls at the configured interval. Publish
// failures are logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.RelayOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
			return
		}
		if n < w.batch {
			return
		}
	}
}

// RelayOnce publishes one batch and returns how many events it marked.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	n, err := w.store.Relay(ctx, w.batch, w.publisher.Publish)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncrementOutboxFailure()
		}
		return 0, err
	}
	if n > 0 {
		if w.metrics != nil {
			w.metrics.AddOutboxPublished(n)
		}
		w.logger.DebugContext(ctx, "outbox events published", "count", n)
	}
	return n, nil
}
