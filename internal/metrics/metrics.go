// Package metrics provides Prometheus metrics for the mortality explorer
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Load metrics
	LoadsTotal    *prometheus.CounterVec
	LoadDuration  prometheus.Histogram
	RecordsLoaded prometheus.Gauge

	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	MatchedRows   *prometheus.HistogramVec

	// Cache metrics
	CacheWritesTotal *prometheus.CounterVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.LoadsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortality_loads_total",
			Help: "Total number of table loads",
		},
		[]string{"status"},
	)

	m.LoadDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mortality_load_duration_seconds",
			Help:    "Duration of table load and cleaning in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.RecordsLoaded = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "mortality_records_loaded",
			Help: "Number of cleaned records currently served",
		},
	)

	m.QueriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortality_queries_total",
			Help: "Total number of engine queries",
		},
		[]string{"kind", "status"},
	)

	m.QueryDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mortality_query_duration_seconds",
			Help:    "Duration of engine queries in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"kind"},
	)

	m.MatchedRows = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mortality_query_matched_rows",
			Help:    "Rows matched per engine query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"kind"},
	)

	m.CacheWritesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortality_cache_writes_total",
			Help: "Total number of cleaned-copy cache writes",
		},
		[]string{"format", "status"},
	)

	return m
}

// RecordLoad records one table load
func (m *Metrics) RecordLoad(rows int, duration time.Duration, err error) {
	m.LoadsTotal.WithLabelValues(status(err)).Inc()
	m.LoadDuration.Observe(duration.Seconds())
	if err == nil {
		m.RecordsLoaded.Set(float64(rows))
	}
}

// RecordQuery records one engine query
func (m *Metrics) RecordQuery(kind string, rows int, duration time.Duration, err error) {
	m.QueriesTotal.WithLabelValues(kind, status(err)).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		m.MatchedRows.WithLabelValues(kind).Observe(float64(rows))
	}
}

// RecordCacheWrite records one cleaned-copy write
func (m *Metrics) RecordCacheWrite(format string, err error) {
	m.CacheWritesTotal.WithLabelValues(format, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
