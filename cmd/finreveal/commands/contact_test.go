package commands

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// fakeDriver answers prompts from scripted queues and records what it was
// shown.
type fakeDriver struct {
	inputs   []string
	confirms []bool
	selects  []int

	asked    []InputConfig
	infos    []string
	rejected []string
}

func (d *fakeDriver) Input(_ context.Context, cfg InputConfig) (string,
	error) {

	d.asked = append(d.asked, cfg)

	// Answers the validator rejects are skipped, the way the terminal
	// asks again.
	for len(d.inputs) > 0 {
		answer := d.inputs[0]
		d.inputs = d.inputs[1:]

		if cfg.Validator != nil && cfg.Validator(answer) != nil {
			d.rejected = append(d.rejected, answer)
			continue
		}

		return answer, nil
	}

	return "", ErrAborted
}

func (d *fakeDriver) Confirm(context.Context, ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, ErrAborted
	}

	answer := d.confirms[0]
	d.confirms = d.confirms[1:]

	return answer, nil
}

func (d *fakeDriver) Select(context.Context, SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return 0, ErrAborted
	}

	answer := d.selects[0]
	d.selects = d.selects[1:]

	return answer, nil
}

func (d *fakeDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

var validAnswers = []string{"Jo", "1234567890", "a@b.co", "hi"}

// scriptedClient fails the first failures sends, then succeeds.
func scriptedClient(failures int32, calls *atomic.Int32) delivery.Client {
	return delivery.ClientFunc(func(context.Context,
		delivery.TemplateParams) fn.Result[delivery.Receipt] {

		if calls.Add(1) <= failures {
			return fn.Err[delivery.Receipt](errors.New("boom"))
		}

		return fn.Ok(delivery.Receipt{Status: 200, Text: "OK"})
	})
}

func runFlow(t *testing.T, driver *fakeDriver,
	client delivery.Client) (*contactFlow, error) {

	t.Helper()

	flow := newContactFlow(driver, client, contact.DefaultRouting())
	t.Cleanup(flow.Close)

	return flow, flow.Run(context.Background())
}

func TestContactFlowSendsAndGoesHome(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{
		inputs:  validAnswers,
		selects: []int{1},
	}

	flow, err := runFlow(t, driver, scriptedClient(0, &calls))
	require.NoError(t, err)

	require.EqualValues(t, 1, calls.Load())
	require.Len(t, driver.asked, len(contact.Fields))
	require.True(t, driver.asked[3].Multiline)
	require.Contains(t, driver.infos, "Returning to /")
	require.Equal(t, "/", flow.location.CurrentPath())
	require.Equal(t, contact.StateNameEditing, flow.form.State())
}

func TestContactFlowRejectsInvalidAnswers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{
		inputs: []string{
			"J", "Jo", "555", "1234567890", "nope", "a@b.co", "  ", "hi",
		},
		selects: []int{1},
	}

	_, err := runFlow(t, driver, scriptedClient(0, &calls))
	require.NoError(t, err)

	require.Equal(t, []string{"J", "555", "nope", "  "}, driver.rejected)
	require.EqualValues(t, 1, calls.Load())
}

func TestContactFlowRetriesOnYes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{
		inputs:   validAnswers,
		confirms: []bool{true},
		selects:  []int{1},
	}

	_, err := runFlow(t, driver, scriptedClient(1, &calls))
	require.NoError(t, err)

	// One failed attempt, then exactly one more for the single yes.
	require.EqualValues(t, 2, calls.Load())
	require.Contains(t, driver.infos, contact.DeliveryFailedMessage)
}

func TestContactFlowGivesUpOnNo(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{
		inputs:   validAnswers,
		confirms: []bool{false},
	}

	flow, err := runFlow(t, driver, scriptedClient(5, &calls))
	require.NoError(t, err)

	require.EqualValues(t, 1, calls.Load())
	require.Contains(t, driver.infos, "Your message was not sent.")
	require.Equal(t, contact.StateNameFailed, flow.form.State())

	// The answers survive the failure.
	require.Equal(t, "a@b.co", flow.form.Snapshot().Values.Email)
}

func TestContactFlowSendAnother(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{
		inputs: append(
			append([]string{}, validAnswers...),
			"Sam", "0987654321", "s@x.io", "again",
		),
		selects: []int{0, 1},
	}

	_, err := runFlow(t, driver, scriptedClient(0, &calls))
	require.NoError(t, err)

	require.EqualValues(t, 2, calls.Load())
	require.Len(t, driver.asked, 2*len(contact.Fields))

	// Send another starts from an empty form.
	for _, cfg := range driver.asked[len(contact.Fields):] {
		require.Empty(t, cfg.Default)
	}
}

func TestContactFlowAborted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	driver := &fakeDriver{inputs: validAnswers[:2]}

	_, err := runFlow(t, driver, scriptedClient(0, &calls))
	require.ErrorIs(t, err, ErrAborted)
	require.Zero(t, calls.Load())
}
