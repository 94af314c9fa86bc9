// Package http provides the HTTP transport adapter for the proxy.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Sentinelgate.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuditDropsTotal prometheus.Counter

	// ProxyRequestsTotal counts forwarded requests by dialect label and
	// proxy mode (spec §4.3 AMBIENT additions). Unary responses are labelled
	// with the dialect detected in the body, streamed responses with
	// "stream", and uninspected routes with "unknown".
	ProxyRequestsTotal *prometheus.CounterVec
	// ProxyVerdictsTotal counts rule-engine verdicts reached while
	// inspecting proxied responses, by recommendation.
	ProxyVerdictsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinelgate",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"}, // method=POST, status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentinelgate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"method"},
		),
		AuditDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "sentinelgate",
				Name:      "audit_drops_total",
				Help:      "Total audit records dropped due to backpressure",
			},
		),
		ProxyRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinelgate",
				Name:      "proxy_requests_total",
				Help:      "Total requests forwarded through the reverse proxy",
			},
			[]string{"dialect", "mode"},
		),
		ProxyVerdictsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentinelgate",
				Name:      "proxy_verdicts_total",
				Help:      "Total rule engine verdicts reached while inspecting proxied responses",
			},
			[]string{"recommendation"},
		),
	}
}
