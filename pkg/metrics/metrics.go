package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docshare"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	DocumentOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_operations_total", Help: "Document lifecycle operations by outcome."},
		[]string{"op", "outcome"},
	)
	AuthorizationDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "authorization_denied_total", Help: "Requests refused by the authorization rules, by operation."},
		[]string{"op"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentOperations)
	reg.MustRegister(AuthorizationDenied)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPRequestDuration)
}
