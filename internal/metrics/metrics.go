package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	AccountOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_operations_total",
			Help: "Account service operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	AccountCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_cache_lookups_total",
			Help: "Account view cache lookups by result",
		},
		[]string{"result"},
	)
)

// ObserveAccountOp records one service call; outcome is "ok" or an error kind name.
func ObserveAccountOp(operation, outcome string) {
	AccountOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
