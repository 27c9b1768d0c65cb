package gorest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics recorded by a Client
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	RateLimitHits    prometheus.Counter
	registry         *prometheus.Registry
}

// NewMetrics creates client metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gorest_client_requests_total",
				Help: "Total number of requests sent to the gorest API",
			},
			[]string{"method", "format", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gorest_client_request_duration_seconds",
				Help:    "gorest API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "format"},
		),
		RateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gorest_client_rate_limit_hits_total",
				Help: "Total number of 429 responses received",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.RequestCounter, m.LatencyHistogram, m.RateLimitHits)

	return m
}

// Observe records one completed request
func (m *Metrics) Observe(method string, format Format, status int, d time.Duration) {
	m.RequestCounter.WithLabelValues(method, string(format), strconv.Itoa(status)).Inc()
	m.LatencyHistogram.WithLabelValues(method, string(format)).Observe(d.Seconds())
	if status == http.StatusTooManyRequests {
		m.RateLimitHits.Inc()
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
