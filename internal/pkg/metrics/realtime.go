package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RealtimeMetrics tracks the streaming side: fan-out volume, dropped sends,
// membership sizes and location persistence failures.
type RealtimeMetrics struct {
	broadcasts      *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	persistFailures prometheus.Counter
	members         *prometheus.GaugeVec
	connections     prometheus.Gauge
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	m := &RealtimeMetrics{
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Events handed to connections, by event name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Events dropped because a connection was closed or its buffer was full.",
		}, []string{"event"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_persist_failures_total",
			Help:      "Current-location writes that failed and were discarded.",
		}),
		members: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_keys",
			Help:      "Non-empty rooms and channels, by kind.",
		}, []string{"kind"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Connections holding at least one membership.",
		}),
	}
	reg.MustRegister(m.broadcasts, m.dropped, m.persistFailures, m.members, m.connections)
	return m
}

// AddDelivered adds n successful sends of event.
func (m *RealtimeMetrics) AddDelivered(event string, n int) {
	if m == nil || m.broadcasts == nil || n == 0 {
		return
	}
	m.broadcasts.WithLabelValues(normalizeLabel(event)).Add(float64(n))
}

// AddDropped adds n sends of event that did not reach a connection.
func (m *RealtimeMetrics) AddDropped(event string, n int) {
	if m == nil || m.dropped == nil || n == 0 {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event)).Add(float64(n))
}

func (m *RealtimeMetrics) IncPersistFailure() {
	if m == nil || m.persistFailures == nil {
		return
	}
	m.persistFailures.Inc()
}

// SetMembership publishes a registry snapshot.
func (m *RealtimeMetrics) SetMembership(rooms, channels, connections int) {
	if m == nil || m.members == nil {
		return
	}
	m.members.WithLabelValues("room").Set(float64(rooms))
	m.members.WithLabelValues("channel").Set(float64(channels))
	m.connections.Set(float64(connections))
}
