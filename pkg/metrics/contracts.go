package metrics

import "github.com/prometheus/client_golang/prometheus"

// Contract lifecycle transitions.
const (
	TransitionCreated  = "created"
	TransitionUpdated  = "updated"
	TransitionCanceled = "canceled"
	TransitionExpired  = "expired"
)

// ContractMetrics counts contract lifecycle transitions and rejected operations.
type ContractMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewContractMetrics registers the contract counters. A nil registerer yields a no-op value.
func NewContractMetrics(reg prometheus.Registerer) *ContractMetrics {
	if reg == nil {
		return &ContractMetrics{}
	}
	m := &ContractMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_transitions_total",
			Help:      "Contract lifecycle transitions.",
		}, []string{"transition"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_rejections_total",
			Help:      "Contract operations rejected by a business rule.",
		}, []string{"operation", "reason"}),
	}
	reg.MustRegister(m.transitions, m.rejections)
	return m
}

// IncTransition counts one lifecycle transition.
func (m *ContractMetrics) IncTransition(transition string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(transition)).Inc()
}

// IncRejection counts one rejected operation with its reason code.
func (m *ContractMetrics) IncRejection(operation, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}
