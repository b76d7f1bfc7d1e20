// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Every collector below is registered and exported on /metrics. Only
// AggregationRejectedTotal is updated by the gateway (internal/api); the
// request and downstream collectors are not incremented or observed
// anywhere and stay at zero.
var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_ms",
			Help:      "Request duration in milliseconds by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	DownstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_requests_total",
			Help:      "Total requests issued to the downstream table service, by table.",
		},
		[]string{"table"},
	)
	DownstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_errors_total",
			Help:      "Total downstream request failures, by table.",
		},
		[]string{"table"},
	)
	DownstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_duration_ms",
			Help:      "Downstream request duration in milliseconds, by table.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)
	AggregationRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_rejected_total",
			Help:      "Total aggregation queries rejected for resources without aggregation access.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		DownstreamRequestsTotal,
		DownstreamErrorsTotal,
		DownstreamDuration,
		AggregationRejectedTotal,
	)
}

// Handler returns the /metrics endpoint, or nil when metrics are
// disabled, so the caller can skip mounting the route entirely.
func Handler(enabled bool) http.Handler {
	if !enabled {
		return nil
	}
	return promhttp.Handler()
}
