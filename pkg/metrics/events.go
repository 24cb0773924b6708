package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventMetrics counts outbox publishing and consumer outcomes per event type.
type EventMetrics struct {
	published *prometheus.CounterVec
	consumed  *prometheus.CounterVec
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_total",
		Help:      "Outbox publish attempts by event type and outcome.",
	}, []string{"event_type", "outcome"})
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "consumed_total",
		Help:      "Consumed events by consumer, event type and outcome.",
	}, []string{"consumer", "event_type", "outcome"})
	reg.MustRegister(published, consumed)
	return &EventMetrics{published: published, consumed: consumed}
}

// Published records a publish outcome: published, retry or dead_letter.
func (m *EventMetrics) Published(eventType, outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// Consumed records a consumer outcome: handled, duplicate, skipped or failed.
func (m *EventMetrics) Consumed(consumer, eventType, outcome string) {
	if m == nil || m.consumed == nil {
		return
	}
	m.consumed.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType), outcome).Inc()
}
