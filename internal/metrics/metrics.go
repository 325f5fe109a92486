// package metrics defines the Prometheus instruments of the sync worker and importer
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Queue metrics
	SyncEntriesTotal *prometheus.CounterVec

	// Remote API metrics
	RemoteCallsTotal *prometheus.CounterVec

	// Drain metrics
	DrainDurationSeconds *prometheus.HistogramVec
	ActiveDrains         prometheus.Gauge

	// Import metrics
	ImportResultsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with every instrument registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytmirror_sync_entries_total",
				Help: "Queue entries that reached a terminal status",
			},
			[]string{"operation", "status"},
		),
		RemoteCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytmirror_remote_calls_total",
				Help: "Remote API calls by outcome",
			},
			[]string{"operation", "outcome"},
		),
		DrainDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ytmirror_drain_duration_seconds",
				Help:    "Duration of queue drains in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"result"},
		),
		ActiveDrains: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytmirror_active_drains",
				Help: "Drains currently running",
			},
		),
		ImportResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytmirror_import_results_total",
				Help: "Imported tracks by match status",
			},
			[]string{"status"},
		),
	}
}

// EntryFinished counts a queue entry reaching status.
func (m *Metrics) EntryFinished(operation, status string) {
	if m == nil {
		return
	}
	m.SyncEntriesTotal.WithLabelValues(operation, status).Inc()
}

// RemoteCall counts one remote call, classified by outcome ("ok", "transient", "auth", "error").
func (m *Metrics) RemoteCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.RemoteCallsTotal.WithLabelValues(operation, outcome).Inc()
}

// DrainStarted marks a drain as active and returns a func recording its duration under the result label.
func (m *Metrics) DrainStarted() func(result string) {
	if m == nil {
		return func(string) {}
	}
	m.ActiveDrains.Inc()
	start := time.Now()
	return func(result string) {
		m.ActiveDrains.Dec()
		m.DrainDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}

// ImportResult counts one imported track by match status.
func (m *Metrics) ImportResult(status string) {
	if m == nil {
		return
	}
	m.ImportResultsTotal.WithLabelValues(status).Inc()
}
