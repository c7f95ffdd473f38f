package metrics

import "github.com/prometheus/client_golang/prometheus"

// Expiration sweep per-order outcomes.
const (
	ExpirationOutcomeExpired = "expired"
	ExpirationOutcomeSkipped = "skipped"
	ExpirationOutcomeFailed  = "failed"
)

// OrderExpirationMetrics tracks what each sweep did to stale pending orders.
type OrderExpirationMetrics struct {
	orders *prometheus.CounterVec
	sweeps prometheus.Counter
}

// NewOrderExpirationMetrics registers the sweeper metrics on the provided registerer.
func NewOrderExpirationMetrics(reg prometheus.Registerer) *OrderExpirationMetrics {
	if reg == nil {
		return &OrderExpirationMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_expiration_orders_total",
		Help:      "Pending orders examined by the expiration sweep, by outcome.",
	}, []string{"outcome"})
	sweeps := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_expiration_sweeps_total",
		Help:      "Completed expiration sweeps.",
	})
	reg.MustRegister(orders, sweeps)
	return &OrderExpirationMetrics{orders: orders, sweeps: sweeps}
}

// AddOutcome adds n orders to the outcome counter.
func (m *OrderExpirationMetrics) AddOutcome(outcome string, n int) {
	if m == nil || m.orders == nil || n <= 0 {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

// IncSweep counts one finished sweep.
func (m *OrderExpirationMetrics) IncSweep() {
	if m == nil || m.sweeps == nil {
		return
	}
	m.sweeps.Inc()
}
