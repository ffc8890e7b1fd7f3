package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for outbound vendor traffic.
//
// One instance is shared by every adapter through the resilience wrapper.
// A nil *Metrics is valid and records nothing, so tests and embedders can
// opt out without guarding every call site.
type Metrics struct {
	requests  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	breaker   *prometheus.GaugeVec
	durations *prometheus.HistogramVec
}

// Breaker state gauge values.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// New creates the collectors and registers them with reg.
//
// Parameters:
//   - reg: Target registry (prometheus.DefaultRegisterer in production)
//
// Returns:
//   - *Metrics: Registered collectors ready for use
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growcore_vendor_requests_total",
			Help: "Outbound vendor requests by adapter and outcome.",
		}, []string{"adapter", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growcore_vendor_retries_total",
			Help: "Retry attempts issued by the resilience wrapper.",
		}, []string{"adapter"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "growcore_circuit_breaker_state",
			Help: "Circuit breaker state per adapter (0=closed, 1=half-open, 2=open).",
		}, []string{"adapter"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "growcore_vendor_request_duration_seconds",
			Help:    "Duration of resilience-wrapped vendor operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter"}),
	}

	reg.MustRegister(m.requests, m.retries, m.breaker, m.durations)
	return m
}

// ObserveRequest records one completed vendor operation.
func (m *Metrics) ObserveRequest(adapter, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(adapter, outcome).Inc()
	m.durations.WithLabelValues(adapter).Observe(seconds)
}

// ObserveRetry records one retry attempt.
func (m *Metrics) ObserveRetry(adapter string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(adapter).Inc()
}

// SetBreakerState records the current breaker state for an adapter.
func (m *Metrics) SetBreakerState(adapter string, state float64) {
	if m == nil {
		return
	}
	m.breaker.WithLabelValues(adapter).Set(state)
}
