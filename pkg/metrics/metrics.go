// Package metrics provides Prometheus metrics for alphabetical search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the search and index collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SearchesTotal    *prometheus.CounterVec
	ResolveTierTotal *prometheus.CounterVec
	PeelBackAttempts prometheus.Histogram
	WindowRows       prometheus.Histogram

	IndexQueriesTotal  *prometheus.CounterVec
	IndexQueryDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.SearchesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alphasearch_searches_total",
			Help: "Total number of alphabetical searches by outcome",
		},
		[]string{"search_type", "status"},
	)

	m.ResolveTierTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alphasearch_resolve_tier_total",
			Help: "Number of searches resolved by each fallback tier",
		},
		[]string{"search_type", "tier"},
	)

	m.PeelBackAttempts = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alphasearch_peel_back_attempts",
			Help:    "Probe attempts spent in the peel-back tier",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 25},
		},
	)

	m.WindowRows = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alphasearch_window_rows",
			Help:    "Rows returned per search window",
			Buckets: []float64{1, 5, 10, 15, 20},
		},
	)

	m.IndexQueriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alphasearch_index_queries_total",
			Help: "Total number of index queries",
		},
		[]string{"search_type", "op", "status"},
	)

	m.IndexQueryDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alphasearch_index_query_duration_seconds",
			Help:    "Duration of index queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"search_type", "op"},
	)

	return m
}

// RecordSearch counts a finished search.
func (m *Metrics) RecordSearch(searchType, status string, rows int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(searchType, status).Inc()
	if rows > 0 {
		m.WindowRows.Observe(float64(rows))
	}
}

// RecordResolve counts the tier that produced the anchor.
func (m *Metrics) RecordResolve(searchType, tier string, peelBackAttempts int) {
	if m == nil {
		return
	}
	m.ResolveTierTotal.WithLabelValues(searchType, tier).Inc()
	if peelBackAttempts > 0 {
		m.PeelBackAttempts.Observe(float64(peelBackAttempts))
	}
}

// RecordIndexQuery records one index round-trip.
func (m *Metrics) RecordIndexQuery(searchType, op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.IndexQueriesTotal.WithLabelValues(searchType, op, status).Inc()
	m.IndexQueryDuration.WithLabelValues(searchType, op).Observe(duration.Seconds())
}
