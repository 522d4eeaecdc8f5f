package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the relay from outbox_events to the order events topic.
type OutboxMetrics struct {
	relayed     *prometheus.CounterVec
	batch       prometheus.Histogram
	lastPublish prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_relayed_total",
			Help: "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_relay_batch_duration_seconds",
			Help:    "Time spent claiming and relaying one outbox batch.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		}),
		lastPublish: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_last_publish_timestamp_seconds",
			Help: "Unix time of the last event acknowledged by Pub/Sub.",
		}),
	}
	reg.MustRegister(m.relayed, m.batch, m.lastPublish)
	return m
}

// ObserveEvent counts one row. outcome is published, retry, parked or deferred.
func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.relayed == nil {
		return
	}
	m.relayed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
	if outcome == "published" {
		m.lastPublish.SetToCurrentTime()
	}
}

func (m *OutboxMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(elapsed.Seconds())
}
