package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors exported by the API.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	verifications *prometheus.CounterVec
	codesIssued   *prometheus.CounterVec
	logins        *prometheus.CounterVec
}

// NewMetrics creates a private registry and registers all collectors on it.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsim_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsim_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitsim_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsim_code_verifications_total",
			Help: "One-time code verification attempts by outcome.",
		}, []string{"outcome"}),
		codesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsim_codes_issued_total",
			Help: "One-time codes issued by delivery outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsim_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(m.requests, m.errors, m.latency, m.verifications, m.codesIssued, m.logins)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordVerification counts a verify call by its outcome ("success" or an error code).
func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// RecordCodeIssued counts a code request by delivery outcome.
func (m *Metrics) RecordCodeIssued(outcome string) {
	if m == nil {
		return
	}
	m.codesIssued.WithLabelValues(outcome).Inc()
}

// RecordLogin counts a login by outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}
