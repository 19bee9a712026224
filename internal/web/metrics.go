package web

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the prometheus collectors for the web front end.
type Metrics struct {
	// Events counts contact form events by type and origin.
	Events *prometheus.CounterVec

	// RateLimited counts submissions refused by the limiter.
	RateLimited prometheus.Counter

	// Sessions is the number of live visitor sessions.
	Sessions prometheus.Gauge

	// Streams is the number of open websocket streams.
	Streams prometheus.Gauge

	// Evicted counts sessions dropped to stay under the session cap.
	Evicted prometheus.Counter
}

// NewMetrics creates the web collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finreveal_contact_events_total",
				Help: "Contact form events received, by type and origin",
			},
			[]string{"type", "origin"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finreveal_contact_rate_limited_total",
				Help: "Contact form submissions refused by the rate limiter",
			},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "finreveal_sessions",
				Help: "Visitor sessions holding a contact form",
			},
		),
		Streams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "finreveal_contact_streams",
				Help: "Open contact form websocket streams",
			},
		),
		Evicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finreveal_sessions_evicted_total",
				Help: "Sessions evicted to stay under the session cap",
			},
		),
	}
	reg.MustRegister(
		m.Events, m.RateLimited, m.Sessions, m.Streams, m.Evicted,
	)

	return m
}
