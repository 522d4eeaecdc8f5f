package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderTransitionMetrics counts lifecycle operations by action and outcome.
type OrderTransitionMetrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	restocked   prometheus.Counter
}

// NewOrderTransitionMetrics registers the order metrics on reg.
func NewOrderTransitionMetrics(reg prometheus.Registerer) *OrderTransitionMetrics {
	if reg == nil {
		return &OrderTransitionMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order lifecycle operations by action and result.",
	}, []string{"action", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_transition_duration_seconds",
		Help:    "Duration of order lifecycle transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	restocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_units_restocked_total",
		Help: "Units returned to stock by cancellations, expiries and accepted returns.",
	})
	reg.MustRegister(transitions, duration, restocked)
	return &OrderTransitionMetrics{
		transitions: transitions,
		duration:    duration,
		restocked:   restocked,
	}
}

// Observe records one finished operation. result is "ok" or an error kind.
func (m *OrderTransitionMetrics) Observe(action, result string, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(normalizeLabel(action)).Observe(elapsed.Seconds())
}

// AddRestocked adds units that went back to stock.
func (m *OrderTransitionMetrics) AddRestocked(units int) {
	if m == nil || m.restocked == nil || units <= 0 {
		return
	}
	m.restocked.Add(float64(units))
}
