package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"personvault/internal/dbinit"
	"personvault/internal/person/cache"
	"personvault/internal/person/handler"
	personmetrics "personvault/internal/person/metrics"
	"personvault/internal/person/outbox"
	"personvault/internal/person/service"
	"personvault/internal/person/store"
	"personvault/internal/platform/config"
	"personvault/internal/platform/httpserver"
	"personvault/internal/platform/metrics"
	"personvault/internal/platform/postgres"
	"personvault/internal/platform/redis"
	"personvault/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

// outboxStore is what the service appends to and the worker relays from.
type outboxStore interface {
	service.OutboxAppender
	outbox.Store
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// app holds the wired process: HTTP server, outbox worker and the resources
// they share.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler http.Handler
	server  *http.Server
	worker  *outbox.Worker
	closers []func() error
}

// buildApp connects every configured backend. Optional backends (Redis,
// Kafka) are skipped when unset; a configured backend that cannot be reached
// fails startup.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	personMetrics := personmetrics.NewWithRegisterer(reg)
	httpMetrics := metrics.NewWithRegisterer(reg)

	var (
		personStore service.Store
		txRunner    service.StoreTx
		events      outboxStore
		checks      []healthCheck
	)
	switch cfg.Storage {
	case config.StorageMemory:
		mem := store.NewInMemory()
		personStore, txRunner = mem, mem
		events = outbox.NewInMemory()
	case config.StoragePostgres:
		db, err := openDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		personStore = store.NewPostgres(db)
		txRunner = store.NewPostgresTxRunner(db, cfg.Database.TxTimeout)
		events = outbox.NewPostgres(db)
		checks = append(checks, healthCheck{name: "postgres", check: db.PingContext})
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(personMetrics),
		service.WithOutbox(events),
		service.WithDefaults(cfg.Person.DefaultAuthor, cfg.Person.DefaultReason),
		service.WithConflictRetries(cfg.Person.ConflictRetries),
		service.WithMaxSearchLimit(cfg.Person.MaxSearchLimit),
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		opts = append(opts, service.WithHistoryCache(cache.NewHistoryCache(rc, cfg.Redis.HistoryTTL)))
		checks = append(checks, healthCheck{name: "redis", check: rc.Health})
	}

	var publisher outbox.Publisher = outbox.NewLogPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { kp.Close(); return nil })
		if err := kp.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return nil, err
		}
		publisher = kp
		checks = append(checks, healthCheck{name: "kafka", check: kp.Ping})
	}

	svc, err := service.New(personStore, txRunner, opts...)
	if err != nil {
		return nil, err
	}

	a.worker = outbox.NewWorker(events, publisher,
		outbox.WithInterval(cfg.Outbox.PollInterval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithLogger(logger),
		outbox.WithMetrics(personMetrics),
	)

	router := chi.NewRouter()
	router.Get("/health", healthHandler(checks))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(svc, logger, httpMetrics, handler.WithTimeout(cfg.Server.RequestTimeout)).Register(router)

	a.handler = router
	a.server = httpserver.New(cfg.Server, router)
	return a, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ApplySchema {
		n, err := dbinit.ApplySchema(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
		logger.InfoContext(ctx, "schema applied", "statements", n)
	}
	return db, nil
}

// Run serves HTTP and relays the outbox until ctx is cancelled or either
// fails, then shuts the server down gracefully.
func (a *app) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox worker: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				if resp.Checks == nil {
					resp.Checks = make(map[string]string)
				}
				resp.Checks[c.name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
