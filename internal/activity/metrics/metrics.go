// Package metrics holds the Prometheus instruments for the activity log
// subsystem. Components accept a nil *Metrics so tests can run unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsRecorded  *prometheus.CounterVec
	RecordFailures  prometheus.Counter
	EventsDropped   prometheus.Counter
	FeedQueries     prometheus.Counter
	FeedQueryErrors prometheus.Counter
	EventsSwept     prometheus.Counter
	SweepFailures   prometheus.Counter
	SweepDuration   prometheus.Histogram
	RetentionBehind prometheus.Gauge
}

// New creates and registers all activity log metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pactum_activity_events_recorded_total",
			Help: "Mutation events appended to the activity log, by entity type.",
		}, []string{"entity_type"}),
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_record_failures_total",
			Help: "Ingestion attempts that exhausted retries against the store.",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_events_dropped_total",
			Help: "Fire-and-forget events dropped after persistent store failure.",
		}),
		FeedQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_feed_queries_total",
			Help: "Feed queries served.",
		}),
		FeedQueryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_feed_query_errors_total",
			Help: "Feed queries that failed against the store.",
		}),
		EventsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_events_swept_total",
			Help: "Events deleted by retention sweeps.",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pactum_activity_sweep_failures_total",
			Help: "Retention sweeps that gave up on a batch after retries.",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pactum_activity_sweep_duration_seconds",
			Help:    "Duration of retention sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		RetentionBehind: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pactum_activity_retention_behind",
			Help: "1 when the last retention sweep failed and data may be accumulating past the window.",
		}),
	}
}

// ObserveSweep records one sweep outcome.
func (m *Metrics) ObserveSweep(deleted int64, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.EventsSwept.Add(float64(deleted))
	m.SweepDuration.Observe(duration.Seconds())
	if failed {
		m.SweepFailures.Inc()
		m.RetentionBehind.Set(1)
	} else {
		m.RetentionBehind.Set(0)
	}
}

// RecordedEvent counts a successful ingestion.
func (m *Metrics) RecordedEvent(entityType string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(entityType).Inc()
}

// RecordFailed counts an ingestion that exhausted retries.
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.RecordFailures.Inc()
}

// DroppedEvent counts a fire-and-forget event that was dropped.
func (m *Metrics) DroppedEvent() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// FeedQuery counts one feed read and whether it failed.
func (m *Metrics) FeedQuery(failed bool) {
	if m == nil {
		return
	}
	m.FeedQueries.Inc()
	if failed {
		m.FeedQueryErrors.Inc()
	}
}
