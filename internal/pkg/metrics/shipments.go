// Package metrics exposes Prometheus collectors for shipment workflows, the
// realtime relay and background jobs. Every method is safe on a nil receiver,
// so components accept a nil collector when metrics are disabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shiptrack"

// ShipmentMetrics counts outcomes of claims and status transitions.
type ShipmentMetrics struct {
	claims      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewShipmentMetrics registers the shipment collectors on reg.
// A nil registerer yields a no-op collector.
func NewShipmentMetrics(reg prometheus.Registerer) *ShipmentMetrics {
	if reg == nil {
		return &ShipmentMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_total",
		Help:      "Claim attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Applied status transitions by target status.",
	}, []string{"status"})
	reg.MustRegister(claims, transitions)
	return &ShipmentMetrics{
		claims:      claims,
		transitions: transitions,
	}
}

// IncClaim records one claim attempt, e.g. "won", "already_assigned".
func (m *ShipmentMetrics) IncClaim(outcome string) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition records one applied transition.
func (m *ShipmentMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
