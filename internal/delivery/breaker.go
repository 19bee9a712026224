package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without contacting the email service while the
// breaker is open.
var ErrCircuitOpen = errors.New("email delivery temporarily unavailable")

// BreakerConfig tunes the circuit breaker in front of the email service.
type BreakerConfig struct {
	// MaxConsecutiveFailures trips the breaker.
	MaxConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before letting a
	// probe through.
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of probes allowed while half open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used by the site.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
		HalfOpenRequests:       1,
	}
}

// BreakerClient stops calling a failing email service for a while. It never
// retries: every Send maps to at most one call of the wrapped client.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps next with a breaker configured by cfg.
func NewBreakerClient(next Client, cfg *BreakerConfig) *BreakerClient {
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures == 0 {
		maxFailures = 1
	}

	settings := gobreaker.Settings{
		Name:        "emailjs",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},

		// A caller giving up is not a fault of the email service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infof("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &BreakerClient{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Send forwards to the wrapped client unless the breaker is open.
//
// NOTE: this is part of the Client interface.
func (b *BreakerClient) Send(ctx context.Context,
	params TemplateParams) fn.Result[Receipt] {

	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Send(ctx, params).Unpack()
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):

		return fn.Err[Receipt](fmt.Errorf("%w: %v", ErrCircuitOpen, err))

	case err != nil:
		return fn.Err[Receipt](err)
	}

	return fn.Ok(out.(Receipt))
}

// State returns the breaker state name: closed, half-open or open.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

var _ Client = (*BreakerClient)(nil)
