package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox publish outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts what the publisher did with each outbox row.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *OutboxMetrics) Inc(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
