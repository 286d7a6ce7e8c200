package ws

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	connections        prometheus.Gauge
	authenticatedUsers prometheus.Gauge
	authFailures       prometheus.Counter
	deliveries         prometheus.Counter
	deliveryMisses     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zoq_relay_connections",
			Help: "Live socket connections, authenticated or not.",
		}),
		authenticatedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zoq_relay_authenticated_users",
			Help: "Distinct users with at least one authenticated connection.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zoq_relay_auth_failures_total",
			Help: "Rejected authenticate events.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zoq_relay_deliveries_total",
			Help: "Events pushed to a live handle.",
		}),
		deliveryMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zoq_relay_delivery_misses_total",
			Help: "Deliver calls that reached zero handles.",
		}),
	}

	reg.MustRegister(
		m.connections,
		m.authenticatedUsers,
		m.authFailures,
		m.deliveries,
		m.deliveryMisses,
	)
	return m
}
