// Package metrics collects Prometheus metrics for the query gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the gateway. The zero
// pointer is usable: every method is a no-op on nil, so callers that do
// not expose metrics skip the plumbing entirely.
type Metrics struct {
	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	rowsReturned      *prometheus.CounterVec
	resultTruncations *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlmcp_queries_total",
				Help: "Total number of queries processed by database, tool, and status",
			},
			[]string{"database", "tool", "status"},
		),

		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mysqlmcp_query_duration_seconds",
				Help:    "Query execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"database", "tool"},
		),

		rowsReturned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlmcp_rows_returned_total",
				Help: "Total number of rows returned to callers",
			},
			[]string{"database", "tool"},
		),

		resultTruncations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlmcp_result_truncations_total",
				Help: "Total number of results cut off at the row limit",
			},
			[]string{"database", "tool"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.queriesTotal,
		m.queryDuration,
		m.rowsReturned,
		m.resultTruncations,
	)

	return m
}

// RecordQuery records one completed query attempt.
func (m *Metrics) RecordQuery(database, tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(database, tool, status).Inc()
	m.queryDuration.WithLabelValues(database, tool).Observe(duration.Seconds())
}

// RecordRows records the number of rows a query returned.
func (m *Metrics) RecordRows(database, tool string, rows int) {
	if m == nil {
		return
	}
	m.rowsReturned.WithLabelValues(database, tool).Add(float64(rows))
}

// RecordTruncation records a result cut off at the row limit.
func (m *Metrics) RecordTruncation(database, tool string) {
	if m == nil {
		return
	}
	m.resultTruncations.WithLabelValues(database, tool).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
