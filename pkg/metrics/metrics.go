// Package metrics defines the Prometheus collectors exposed by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that
// can be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// HTTPRequestsTotal counts handled HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "porch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of handled HTTP requests.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes HTTP request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "porch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   DefaultBuckets,
	}, []string{"method", "route"})

	// TasksClaimed counts tasks handed out to agents, by pipeline name.
	TasksClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "porch",
		Name:      "tasks_claimed_total",
		Help:      "Total number of tasks claimed by agents.",
	}, []string{"pipeline"})

	// ClaimsExpired counts stale claims released back to the pending pool.
	ClaimsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "porch",
		Name:      "claims_expired_total",
		Help:      "Total number of stale task claims released by the sweeper.",
	})
)
