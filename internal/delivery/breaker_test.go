package delivery

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	btclog "github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// countingClient fails while failing is set and counts every call.
type countingClient struct {
	calls   int
	failing bool
}

func (c *countingClient) Send(_ context.Context,
	_ TemplateParams) fn.Result[Receipt] {

	c.calls++
	if c.failing {
		return fn.Err[Receipt](errors.New("connection refused"))
	}

	return fn.Ok(Receipt{Status: 200, Text: "OK"})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &countingClient{failing: true}
	client := NewBreakerClient(next, &BreakerConfig{
		MaxConsecutiveFailures: 2,
		OpenTimeout:            time.Hour,
		HalfOpenRequests:       1,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Send(ctx, testParams()).Unpack()
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}
	require.Equal(t, "open", client.State())

	// The open breaker fails fast without reaching the service.
	_, err := client.Send(ctx, testParams()).Unpack()
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, 2, next.calls)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	cancelled := ClientFunc(func(ctx context.Context,
		_ TemplateParams) fn.Result[Receipt] {

		return fn.Err[Receipt](context.Canceled)
	})
	client := NewBreakerClient(cancelled, &BreakerConfig{
		MaxConsecutiveFailures: 1,
		OpenTimeout:            time.Hour,
	})

	for i := 0; i < 3; i++ {
		_, err := client.Send(context.Background(), testParams()).Unpack()
		require.ErrorIs(t, err, context.Canceled)
	}
	require.Equal(t, "closed", client.State())
}

func TestInstrumentedClientCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	next := &countingClient{}
	client := NewInstrumentedClient(next, metrics)
	ctx := context.Background()

	_, err := client.Send(ctx, testParams()).Unpack()
	require.NoError(t, err)

	next.failing = true
	_, err = client.Send(ctx, testParams()).Unpack()
	require.Error(t, err)

	open := NewInstrumentedClient(ClientFunc(
		func(context.Context, TemplateParams) fn.Result[Receipt] {
			return fn.Err[Receipt](ErrCircuitOpen)
		},
	), metrics)
	_, err = open.Send(ctx, testParams()).Unpack()
	require.ErrorIs(t, err, ErrCircuitOpen)

	require.Equal(t, 1.0, testutil.ToFloat64(
		metrics.Attempts.WithLabelValues(outcomeOK),
	))
	require.Equal(t, 1.0, testutil.ToFloat64(
		metrics.Attempts.WithLabelValues(outcomeError),
	))
	require.Equal(t, 1.0, testutil.ToFloat64(
		metrics.Attempts.WithLabelValues(outcomeCircuitOpen),
	))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.Latency))
}

func TestLoggingClientPassesThrough(t *testing.T) {
	client := NewLoggingClient(&countingClient{})

	receipt, err := client.Send(context.Background(), testParams()).Unpack()
	require.NoError(t, err)
	require.Equal(t, 200, receipt.Status)
}

func TestLoggingClientKeepsAddressOutOfInfoLogs(t *testing.T) {
	var buf bytes.Buffer
	UseLogger(btclog.NewSLogger(btclog.NewDefaultHandler(&buf)))
	defer DisableLog()

	inner := &countingClient{}
	client := NewLoggingClient(inner)

	client.Send(context.Background(), testParams())
	inner.failing = true
	client.Send(context.Background(), testParams())

	require.Contains(t, buf.String(), "Contact message delivered")
	require.Contains(t, buf.String(), "Contact message delivery failed")
	require.NotContains(t, buf.String(), testParams().ReplyTo)
}
