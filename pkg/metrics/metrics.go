// Package metrics holds the prometheus collectors exposed on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AuthEvents counts sign in, sign up and sign out attempts by outcome
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total number of authentication events",
		},
		[]string{"event", "result"},
	)

	CleanupPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_purged_rows_total",
			Help: "Total number of expired rows removed by the cleanup job",
		},
		[]string{"table"},
	)
)

// AuthEvent records the outcome of an auth attempt
func AuthEvent(event string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	AuthEvents.WithLabelValues(event, result).Inc()
}
