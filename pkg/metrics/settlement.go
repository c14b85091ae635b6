package metrics

import "github.com/prometheus/client_golang/prometheus"

// Settlement outcomes.
const (
	OutcomeSettled        = "settled"
	OutcomeAlreadySettled = "already_settled"
	OutcomeFailed         = "failed"
)

// SettlementMetrics counts settlement attempts and reconciliation findings.
type SettlementMetrics struct {
	outcomes *prometheus.CounterVec
	failures *prometheus.CounterVec
	repaired prometheus.Counter
	orphans  prometheus.Counter
}

// NewSettlementMetrics registers the settlement counters on reg. A nil
// registerer yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_settlements_total",
		Help: "Settlement attempts by outcome.",
	}, []string{"outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_settlement_failures_total",
		Help: "Rolled back settlements by failing step.",
	}, []string{"step"})
	repaired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_settlements_repaired_total",
		Help: "Completed engagements credited by the reconciliation sweep.",
	})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_settlement_orphan_credits_total",
		Help: "Settlement credits found for engagements that are not completed.",
	})
	reg.MustRegister(outcomes, failures, repaired, orphans)
	return &SettlementMetrics{
		outcomes: outcomes,
		failures: failures,
		repaired: repaired,
		orphans:  orphans,
	}
}

func (m *SettlementMetrics) IncSettled() {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(OutcomeSettled).Inc()
}

func (m *SettlementMetrics) IncAlreadySettled() {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(OutcomeAlreadySettled).Inc()
}

// IncFailure counts a rolled back settlement against the step that broke.
func (m *SettlementMetrics) IncFailure(step string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(OutcomeFailed).Inc()
	m.failures.WithLabelValues(normalizeLabel(step)).Inc()
}

func (m *SettlementMetrics) IncRepaired() {
	if m == nil || m.repaired == nil {
		return
	}
	m.repaired.Inc()
}

func (m *SettlementMetrics) AddOrphans(n int) {
	if m == nil || m.orphans == nil || n <= 0 {
		return
	}
	m.orphans.Add(float64(n))
}
