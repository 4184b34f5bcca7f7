package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for identity resolution and versioning.
type Metrics struct {
	AppliesTotal        *prometheus.CounterVec
	WriteConflicts      prometheus.Counter
	ApplyDuration       prometheus.Histogram
	ResolveDuration     prometheus.Histogram
	StateAtDuration     prometheus.Histogram
	HistoryCacheLookups *prometheus.CounterVec
	OutboxPublished     prometheus.Counter
	OutboxFailures      prometheus.Counter
}

// New registers the person metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the person metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppliesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "personvault_applies_total",
			Help: "Committed snapshot applications by outcome (new_group, attached)",
		}, []string{"outcome"}),
		WriteConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "personvault_write_conflicts_total",
			Help: "Apply transactions rolled back by contention, including retried attempts",
		}),
		ApplyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "personvault_apply_duration_seconds",
			Help:    "Duration of Apply calls including retries",
			Buckets: durationBuckets,
		}),
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "personvault_resolve_duration_seconds",
			Help:    "Duration of read-only Resolve calls",
			Buckets: durationBuckets,
		}),
		StateAtDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "personvault_state_at_duration_seconds",
			Help:    "Duration of point-in-time state reconstruction",
			Buckets: durationBuckets,
		}),
		HistoryCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "personvault_history_cache_lookups_total",
			Help: "History cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "personvault_outbox_published_total",
			Help: "Change events published from the outbox",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "personvault_outbox_publish_failures_total",
			Help: "Outbox batches that failed to publish",
		}),
	}
}

// IncrementApplied records a committed Apply.
func (m *Metrics) IncrementApplied(newGroup bool) {
	outcome := "attached"
	if newGroup {
		outcome = "new_group"
	}
	m.AppliesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementWriteConflict() {
	m.WriteConflicts.Inc()
}

// ObserveApply records the duration of an Apply call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveApply(start time.Time) {
	m.ApplyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveStateAt(start time.Time) {
	m.StateAtDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordHistoryCache(result string) {
	m.HistoryCacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailure() {
	m.OutboxFailures.Inc()
}
