// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package metrics exposes Prometheus instrumentation for the service:
// warehouse query performance, catalog refresh activity, response cache
// efficiency, and API endpoint latency. All collectors are registered on the
// default registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Warehouse query metrics
	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_query_duration_seconds",
			Help:    "Duration of warehouse queries in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	WarehouseQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_query_errors_total",
			Help: "Total number of warehouse query errors",
		},
		[]string{"operation", "error_type"}, // error_type: timeout, canceled, breaker_open, execution
	)

	WarehouseQueryRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_query_rows",
			Help:    "Rows returned per warehouse query",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7), // 1 .. 1M
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warehouse_breaker_state",
			Help: "Warehouse circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// Catalog metrics
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Total number of catalog refresh attempts",
		},
		[]string{"result"}, // success, failure, skipped
	)

	CatalogRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_refresh_duration_seconds",
			Help:    "Duration of catalog refreshes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogTables = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_tables",
			Help: "Number of tables in the current catalog snapshot by type",
		},
		[]string{"type"}, // events, events_intraday, users, other
	)

	// Response cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_entries",
			Help: "Current number of response cache entries",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordWarehouseQuery records one warehouse query execution.
func RecordWarehouseQuery(operation string, duration time.Duration, rows int, errorType string) {
	WarehouseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errorType != "" {
		WarehouseQueryErrors.WithLabelValues(operation, errorType).Inc()
		return
	}
	WarehouseQueryRows.WithLabelValues(operation).Observe(float64(rows))
}

// RecordCatalogRefresh records one catalog refresh attempt.
func RecordCatalogRefresh(result string, duration time.Duration) {
	CatalogRefreshTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		CatalogRefreshDuration.Observe(duration.Seconds())
	}
}

// SetCatalogTables updates the per-type table gauges after a refresh.
func SetCatalogTables(counts map[string]int) {
	for typ, n := range counts {
		CatalogTables.WithLabelValues(typ).Set(float64(n))
	}
}

// RecordAPIRequest records one API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
