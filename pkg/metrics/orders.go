package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records the order lifecycle counters exported on /metrics.
type OrderMetrics struct {
	transitions       *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	reconcileFailures *prometheus.CounterVec
	stockDepleted     prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"to"})
	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reconcile_duration_seconds",
		Help:    "Duration of stock reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reconcileFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reconcile_failures_total",
		Help: "Failed stock reconciliations by reason.",
	}, []string{"reason"})
	stockDepleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_depleted_total",
		Help: "Products whose stock reached zero during reconciliation.",
	})
	reg.MustRegister(transitions, reconcileDuration, reconcileFailures, stockDepleted)
	return &OrderMetrics{
		transitions:       transitions,
		reconcileDuration: reconcileDuration,
		reconcileFailures: reconcileFailures,
		stockDepleted:     stockDepleted,
	}
}

// IncTransition increments the transition counter for the target status.
func (m *OrderMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

// ObserveReconcile records the duration of one reconciliation run.
func (m *OrderMetrics) ObserveReconcile(duration time.Duration) {
	if m == nil || m.reconcileDuration == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
}

// IncReconcileFailure increments the failure counter for the given reason.
func (m *OrderMetrics) IncReconcileFailure(reason string) {
	if m == nil || m.reconcileFailures == nil {
		return
	}
	m.reconcileFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncStockDepleted increments the depleted-product counter.
func (m *OrderMetrics) IncStockDepleted() {
	if m == nil || m.stockDepleted == nil {
		return
	}
	m.stockDepleted.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
