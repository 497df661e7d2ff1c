package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts by payment method and outcome.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment method and outcome code.",
	}, []string{"method", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(attempts, duration)
	return &CheckoutMetrics{attempts: attempts, duration: duration}
}

// Observe records one finished attempt. outcome is "success" or an error code.
func (c *CheckoutMetrics) Observe(method, outcome string, elapsed time.Duration) {
	if c == nil || c.attempts == nil {
		return
	}
	method = normalizeLabel(method)
	c.attempts.WithLabelValues(method, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ReconciliationMetrics counts gateway callback verification outcomes.
type ReconciliationMetrics struct {
	results *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation counter.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Gateway callback verifications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(results)
	return &ReconciliationMetrics{results: results}
}

// Inc increments the counter for outcome.
func (r *ReconciliationMetrics) Inc(outcome string) {
	if r == nil || r.results == nil {
		return
	}
	r.results.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
