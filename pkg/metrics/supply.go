package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ledger adjustment outcomes.
const (
	LedgerOutcomeApplied      = "applied"
	LedgerOutcomeInsufficient = "insufficient_stock"
	LedgerOutcomeConflict     = "conflict"
	LedgerOutcomeRejected     = "rejected"
	LedgerOutcomeError        = "error"
)

// SupplyLedgerMetrics counts supply quantity adjustments by outcome.
type SupplyLedgerMetrics struct {
	adjustments *prometheus.CounterVec
	units       *prometheus.CounterVec
}

// NewSupplyLedgerMetrics registers the ledger metrics on the provided registerer.
func NewSupplyLedgerMetrics(reg prometheus.Registerer) *SupplyLedgerMetrics {
	if reg == nil {
		return &SupplyLedgerMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "supply_ledger_adjustments_total",
		Help:      "Supply listing quantity adjustments by outcome.",
	}, []string{"outcome"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "supply_ledger_units_total",
		Help:      "Units moved by applied adjustments, split by direction.",
	}, []string{"direction"})
	reg.MustRegister(adjustments, units)
	return &SupplyLedgerMetrics{adjustments: adjustments, units: units}
}

// IncOutcome increments the adjustment counter for outcome.
func (m *SupplyLedgerMetrics) IncOutcome(outcome string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddUnits records the absolute size of an applied delta.
func (m *SupplyLedgerMetrics) AddUnits(delta int) {
	if m == nil || m.units == nil || delta == 0 {
		return
	}
	direction := "reserved"
	if delta > 0 {
		direction = "released"
	} else {
		delta = -delta
	}
	m.units.WithLabelValues(direction).Add(float64(delta))
}
