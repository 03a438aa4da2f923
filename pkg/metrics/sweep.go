// Package metrics exposes Prometheus metrics for cleanup sweeps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "sweeper"
	subsystem = "cleanup"
)

// SweepMetrics records the outcome of sweeps. All methods are safe on a nil
// receiver so callers can run without metrics.
type SweepMetrics struct {
	// RunsTotal counts sweeps by terminal status (ok, skipped, error).
	RunsTotal *prometheus.CounterVec

	// Duration observes the wall time of sweeps that acquired the lock.
	Duration prometheus.Histogram

	// RecordsDeleted counts deleted child documents by collection.
	RecordsDeleted *prometheus.CounterVec

	// SpacesScanned counts spaces visited across all sweeps.
	SpacesScanned prometheus.Counter

	// SpaceFailures counts spaces whose processing failed.
	SpaceFailures prometheus.Counter

	// CountSource counts reconciliation counts by the path that served them (aggregate, scan).
	CountSource *prometheus.CounterVec

	// LastSuccess is the unix time of the last successful sweep.
	LastSuccess prometheus.Gauge
}

// NewSweepMetricsWithRegistry creates sweep metrics registered with reg.
func NewSweepMetricsWithRegistry(reg prometheus.Registerer) *SweepMetrics {
	f := promauto.With(reg)
	return &SweepMetrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of cleanup sweeps by status.",
			},
			[]string{"status"},
		),
		Duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of cleanup sweeps that held the lock.",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		RecordsDeleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "records_deleted_total",
				Help:      "Total number of stale documents deleted by collection.",
			},
			[]string{"collection"},
		),
		SpacesScanned: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "spaces_scanned_total",
				Help:      "Total number of spaces visited by sweeps.",
			},
		),
		SpaceFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "space_failures_total",
				Help:      "Total number of spaces whose cleanup failed.",
			},
		),
		CountSource: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconcile_counts_total",
				Help:      "Total number of user count reconciliations by count source.",
			},
			[]string{"source"},
		),
		LastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful sweep.",
			},
		),
	}
}

func (m *SweepMetrics) RecordRun(status string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		m.Duration.Observe(duration.Seconds())
	}
	if status == "ok" {
		m.LastSuccess.Set(float64(finishedAt.Unix()))
	}
}

func (m *SweepMetrics) RecordDeleted(collection string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsDeleted.WithLabelValues(collection).Add(float64(n))
}

func (m *SweepMetrics) RecordSpace(failed bool) {
	if m == nil {
		return
	}
	m.SpacesScanned.Inc()
	if failed {
		m.SpaceFailures.Inc()
	}
}

func (m *SweepMetrics) RecordCountSource(source string) {
	if m == nil {
		return
	}
	m.CountSource.WithLabelValues(source).Inc()
}
