package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated on every resolution.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	NoRoute     prometheus.Counter
}

// NewMetrics creates the routing collectors and registers them with reg.
// A nil reg leaves the collectors unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hermes_route_resolutions_total",
				Help: "Paths resolved to a service, by resolution method and service",
			},
			[]string{"method", "service"},
		),
		NoRoute: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hermes_route_not_found_total",
				Help: "Paths that matched no explicit route and no inference rule",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Resolutions, m.NoRoute)
	}

	return m
}

func (m *Metrics) observe(method ResolutionMethod, serviceName string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(string(method), serviceName).Inc()
}

func (m *Metrics) observeNoRoute() {
	if m == nil {
		return
	}
	m.NoRoute.Inc()
}
