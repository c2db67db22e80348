package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	// HTTPRequestsTotal counts handled requests by method, matched route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// StaticNotFoundTotal counts static lookups answered with 404
	StaticNotFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "static_not_found_total",
			Help: "Static file requests that did not resolve to a file",
		},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks query latency by statement verb
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
		[]string{"query"},
	)

	// DBErrorsTotal counts failed queries by statement verb
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database query errors",
		},
		[]string{"query"},
	)

	// DBPoolAcquireTimeouts counts acquisitions that gave up waiting for a connection
	DBPoolAcquireTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_pool_acquire_timeouts_total",
			Help: "Connection acquisitions that exceeded the acquire timeout",
		},
	)

	// DBPoolConnections tracks pool connections by state (acquired/idle/total)
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Current database pool connections by state",
		},
		[]string{"state"},
	)
)
