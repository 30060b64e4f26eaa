package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gateway"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Quota metrics
var (
	QuotaDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota decisions by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)

// Upstream provider metrics
var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls to external providers by provider and result",
		},
		[]string{"provider", "result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ip_rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter",
		},
	)
)
