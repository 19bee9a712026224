package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels used on the attempts counter.
const (
	outcomeOK          = "ok"
	outcomeError       = "error"
	outcomeCircuitOpen = "circuit_open"
)

// Metrics are the prometheus collectors for outbound deliveries.
type Metrics struct {
	// Attempts counts sends by outcome.
	Attempts *prometheus.CounterVec

	// Latency observes the duration of each send in seconds.
	Latency prometheus.Histogram
}

// NewMetrics creates the delivery collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finreveal_delivery_attempts_total",
				Help: "Contact messages handed to the email service, by outcome",
			},
			[]string{"outcome"},
		),
		Latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finreveal_delivery_duration_seconds",
				Help:    "Time spent sending one contact message",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
		),
	}
	reg.MustRegister(m.Attempts, m.Latency)

	return m
}

// InstrumentedClient records attempts and latency of the wrapped client.
type InstrumentedClient struct {
	next    Client
	metrics *Metrics
}

// NewInstrumentedClient wraps next with metrics.
func NewInstrumentedClient(next Client, m *Metrics) *InstrumentedClient {
	return &InstrumentedClient{next: next, metrics: m}
}

// Send is part of the Client interface.
func (c *InstrumentedClient) Send(ctx context.Context,
	params TemplateParams) fn.Result[Receipt] {

	start := time.Now()
	result := c.next.Send(ctx, params)
	c.metrics.Latency.Observe(time.Since(start).Seconds())

	outcome := outcomeOK
	if _, err := result.Unpack(); err != nil {
		outcome = outcomeError
		if errors.Is(err, ErrCircuitOpen) {
			outcome = outcomeCircuitOpen
		}
	}
	c.metrics.Attempts.WithLabelValues(outcome).Inc()

	return result
}

var _ Client = (*InstrumentedClient)(nil)
