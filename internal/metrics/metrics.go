// Package metrics defines the Prometheus collectors for the sync subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	syncTotal     *prometheus.CounterVec
	cooldownSkips prometheus.Counter
	batchRuns     *prometheus.CounterVec
	batchDuration prometheus.Histogram
	reindexTotal  *prometheus.CounterVec
	evicted       prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "market_fetch_total",
			Help: "Upstream fetches by source and result kind",
		}, []string{"source", "result"}),

		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_fetch_duration_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"source"}),

		syncTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "market_sync_total",
			Help: "Per-asset sync outcomes by status",
		}, []string{"status"}),

		cooldownSkips: f.NewCounter(prometheus.CounterOpts{
			Name: "market_sync_cooldown_skips_total",
			Help: "Assets skipped because every source was cooling down",
		}),

		batchRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "market_batch_runs_total",
			Help: "Refresh-all runs by result",
		}, []string{"result"}),

		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_batch_duration_seconds",
			Help:    "Refresh-all run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),

		reindexTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "market_reindex_total",
			Help: "Reindex requests by result",
		}, []string{"result"}),

		evicted: f.NewCounter(prometheus.CounterOpts{
			Name: "market_derived_evicted_total",
			Help: "Derived cache entries removed by the TTL sweep",
		}),
	}
}

// ObserveFetch records one upstream call. err is nil on success.
func (m *Metrics) ObserveFetch(src model.Source, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperrors.KindOf(err))
	}
	m.fetchTotal.WithLabelValues(string(src), result).Inc()
	m.fetchDuration.WithLabelValues(string(src)).Observe(d.Seconds())
}

// ObserveSync records the terminal status of one asset sync.
func (m *Metrics) ObserveSync(status model.SyncStatus) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(string(status)).Inc()
	if status == model.SyncStatusCooldown {
		m.cooldownSkips.Inc()
	}
}

// ObserveBatch records a completed or rejected refresh-all run.
func (m *Metrics) ObserveBatch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(result).Inc()
	if d > 0 {
		m.batchDuration.Observe(d.Seconds())
	}
}

// ObserveReindex records a reindex lookup; result is hit, miss or absent.
func (m *Metrics) ObserveReindex(result string) {
	if m == nil {
		return
	}
	m.reindexTotal.WithLabelValues(result).Inc()
}

// ObserveEviction records entries removed by the TTL sweep.
func (m *Metrics) ObserveEviction(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.evicted.Add(float64(n))
}
