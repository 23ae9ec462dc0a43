package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and payment dispatch outcomes.
type CheckoutMetrics struct {
	quoteDuration *prometheus.HistogramVec
	proceeds      *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	quoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_quote_duration_seconds",
		Help:    "Duration of cart quote computations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	proceeds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_proceed_total",
		Help: "Proceed-to-checkout attempts by outcome.",
	}, []string{"outcome"})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_dispatch_total",
		Help: "Payment dispatches by method and outcome.",
	}, []string{"method", "outcome"})
	reg.MustRegister(quoteDuration, proceeds, dispatches)
	return &CheckoutMetrics{
		quoteDuration: quoteDuration,
		proceeds:      proceeds,
		dispatches:    dispatches,
	}
}

// ObserveQuoteDuration records how long one quote computation took.
func (c *CheckoutMetrics) ObserveQuoteDuration(trigger string, duration time.Duration) {
	if c == nil || c.quoteDuration == nil {
		return
	}
	c.quoteDuration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncProceed increments the proceed counter for the given outcome.
func (c *CheckoutMetrics) IncProceed(outcome string) {
	if c == nil || c.proceeds == nil {
		return
	}
	c.proceeds.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDispatch increments the dispatch counter for the method/outcome pair.
func (c *CheckoutMetrics) IncDispatch(method, outcome string) {
	if c == nil || c.dispatches == nil {
		return
	}
	c.dispatches.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
