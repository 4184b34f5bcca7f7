package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"personvault/internal/person/matching"
	"personvault/internal/person/metrics"
	"personvault/internal/person/models"
	"personvault/internal/person/outbox"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,StoreTx,HistoryCache,OutboxAppender

// Store is the persistence boundary for groups, change sets, current records
// and history records. Absent rows are reported as sentinel.ErrNotFound.
type Store interface {
	FindMatchingGroup(ctx context.Context, criteria matching.Criteria) (models.GroupID, error)
	CreateGroup(ctx context.Context, createdAt time.Time) (models.GroupID, error)
	CreateChangeSet(ctx context.Context, cs *models.ChangeSet) error
	FindChangeSet(ctx context.Context, id uuid.UUID) (*models.ChangeSet, error)
	FindLatestCurrent(ctx context.Context, groupID models.GroupID) (*models.CurrentRecord, error)
	InsertCurrent(ctx context.Context, rec *models.CurrentRecord) error
	InsertHistory(ctx context.Context, rec *models.HistoryRecord) error
	RetireCurrent(ctx context.Context, id models.RecordID) error
	FindCurrentAsOf(ctx context.Context, groupID models.GroupID, at time.Time) (*models.CurrentRecord, error)
	FindHistoryAt(ctx context.Context, groupID models.GroupID, at time.Time) (*models.HistoryRecord, error)
	ListHistory(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error)
	SearchCurrent(ctx context.Context, filter models.SearchFilter) ([]*models.CurrentRecord, error)
}

// StoreTx provides the atomic boundary for Apply. Implementations serialise
// all callers holding the same lockKey from before fn runs until commit or
// rollback, and discard every write made through the store when fn fails.
type StoreTx interface {
	RunInTx(ctx context.Context, lockKey int64, fn func(ctx context.Context, store Store) error) error
}

// HistoryCache is an optional read-through cache for HistoryOf. A miss
// reports the group's version; Set stores only while that version is current
// and Invalidate advances it, so a fill that raced a commit is discarded.
type HistoryCache interface {
	Get(ctx context.Context, groupID models.GroupID) (records []*models.HistoryRecord, version int64, ok bool, err error)
	Set(ctx context.Context, groupID models.GroupID, version int64, records []*models.HistoryRecord) (bool, error)
	Invalidate(ctx context.Context, groupID models.GroupID) error
}

// OutboxAppender records change events inside the Apply transaction. The
// ctx passed to Append carries the transaction.
type OutboxAppender interface {
	Append(ctx context.Context, event outbox.Event) error
}

const (
	DefaultAuthor          = "system"
	DefaultReason          = "API person creation"
	defaultConflictRetries = 2
	defaultMaxSearchLimit  = 1000
)

// Service resolves snapshots to identity groups, versions their attributes
// and answers point-in-time queries.
type Service struct {
	store           Store
	tx              StoreTx
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	cache           HistoryCache
	outbox          OutboxAppender
	defaultAuthor   string
	defaultReason   string
	conflictRetries int
	maxSearchLimit  int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithHistoryCache(cache HistoryCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithOutbox(appender OutboxAppender) Option {
	return func(s *Service) {
		s.outbox = appender
	}
}

// WithDefaults sets the change set attribution used when Apply callers
// supply none.
func WithDefaults(author, reason string) Option {
	return func(s *Service) {
		if author != "" {
			s.defaultAuthor = author
		}
		if reason != "" {
			s.defaultReason = reason
		}
	}
}

// WithConflictRetries sets how many extra attempts Apply makes after a write
// conflict before surfacing it. Zero disables retries.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

func WithMaxSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSearchLimit = n
		}
	}
}

// New constructs a Service. store serves reads outside transactions; tx
// provides the write boundary.
func New(store Store, tx StoreTx, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("person store is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		store:           store,
		tx:              tx,
		logger:          slog.New(slog.DiscardHandler),
		tracer:          otel.Tracer("personvault/person/service"),
		defaultAuthor:   DefaultAuthor,
		defaultReason:   DefaultReason,
		conflictRetries: defaultConflictRetries,
		maxSearchLimit:  defaultMaxSearchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
