package contact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/finreveal/site/internal/async"
	"github.com/finreveal/site/internal/delivery"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// DefaultHomePath is where "back to home" navigates.
const DefaultHomePath = "/"

// subscriberBuffer is the number of snapshots a slow subscriber may lag
// behind before updates to it are dropped.
const subscriberBuffer = 8

// ControllerConfig holds the collaborators of a Controller.
type ControllerConfig struct {
	// Client delivers submitted messages. Required.
	Client delivery.Client

	// Navigator receives "back to home". Nil discards navigation.
	Navigator Navigator

	// Validator defaults to NewValidator(nil).
	Validator *Validator

	// Routing defaults to DefaultRouting.
	Routing fn.Option[Routing]

	// HomePath defaults to DefaultHomePath.
	HomePath string

	// Clock stamps delivery receipts. Defaults to time.Now.
	Clock func() time.Time

	// CancelOnClose cancels an in-flight delivery on Close. Without it the
	// request runs to completion and its result is dropped.
	CancelOnClose bool
}

// Controller owns one contact form: its FSM, focus and the single delivery
// that may be in flight. All methods are safe for concurrent use.
type Controller struct {
	cfg ControllerConfig

	mu       sync.Mutex
	fsm      *FormFSM
	focus    fn.Option[Field]
	inflight *async.Task[delivery.Receipt]
	settled  chan struct{}
	closed   bool

	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// NewController returns a controller in the editing state with an empty
// form.
func NewController(cfg *ControllerConfig) *Controller {
	c := *cfg
	if c.Validator == nil {
		c.Validator = NewValidator(nil)
	}
	if c.Navigator == nil {
		c.Navigator = discardNavigator{}
	}
	if c.HomePath == "" {
		c.HomePath = DefaultHomePath
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}

	env := &FormEnvironment{
		Validator: c.Validator,
		Routing:   c.Routing.UnwrapOr(DefaultRouting()),
		HomePath:  c.HomePath,
	}

	settled := make(chan struct{})
	close(settled)

	return &Controller{
		cfg:     c,
		fsm:     NewFormFSM(env),
		settled: settled,
		subs:    make(map[uint64]chan Snapshot),
	}
}

// State returns the current submission state.
func (c *Controller) State() StateName {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fsm.State().Name()
}

// Snapshot returns the current view of the form.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return buildSnapshot(c.fsm, c.cfg.Validator, c.focus.UnwrapOr(""))
}

// Dispatch applies one event and returns the resulting view. Events that do
// not apply in the current state are ignored without error. A submit that
// starts a delivery returns immediately in the submitting state.
func (c *Controller) Dispatch(ctx context.Context,
	event FormEvent) (Snapshot, error) {

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return Snapshot{}, ErrControllerClosed
	}

	navigations, err := c.applyLocked(ctx, event)
	if err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	// The navigator may call back into the controller.
	for _, path := range navigations {
		log.DebugS(ctx, "Navigating", "path", path)
		c.cfg.Navigator.NavigateTo(path)
	}

	return snap, nil
}

// applyLocked runs an event through focus handling or the FSM and executes
// the outbox. It returns the navigations to perform once the lock is
// released.
func (c *Controller) applyLocked(ctx context.Context,
	event FormEvent) ([]string, error) {

	switch e := event.(type) {
	case FocusEvent:
		if _, err := ParseField(string(e.Field)); err != nil {
			return nil, err
		}
		c.focus = fn.Some(e.Field)

		return nil, nil

	case BlurEvent:
		c.focus = fn.None[Field]()
		return nil, nil

	case FieldChangedEvent:
		if _, err := ParseField(string(e.Field)); err != nil {
			return nil, err
		}
	}

	transition, err := c.fsm.ProcessEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	if transition.Ignored {
		log.TraceS(ctx, "Event ignored", "event", eventName(event),
			"state", c.fsm.StateString())

		return nil, nil
	}

	var navigations []string
	for _, out := range transition.OutboxEvents {
		switch o := out.(type) {
		case DeliverMessage:
			c.startDeliveryLocked(ctx, o)

		case NavigateTo:
			navigations = append(navigations, o.Path)

		case NotifyStateChange:
			log.DebugS(ctx, "Form state changed",
				"old", o.OldState, "new", o.NewState)

			c.publishLocked()
		}
	}

	return navigations, nil
}

// startDeliveryLocked launches the delivery call for an attempt. The call
// does not inherit cancellation from the request that submitted the form;
// only Close with CancelOnClose stops it.
func (c *Controller) startDeliveryLocked(ctx context.Context,
	msg DeliverMessage) {

	log.InfoS(ctx, "Delivering contact message", "attempt", msg.AttemptID)

	c.settled = make(chan struct{})

	client := c.cfg.Client
	task := async.Go(context.WithoutCancel(ctx),
		func(ctx context.Context) fn.Result[delivery.Receipt] {
			return client.Send(ctx, msg.Params)
		},
	)
	c.inflight = task

	task.OnComplete(context.Background(),
		func(result fn.Result[delivery.Receipt]) {
			c.resolve(msg.AttemptID, result)
		},
	)
}

// resolve feeds the outcome of an attempt back into the FSM.
func (c *Controller) resolve(attempt uint64,
	result fn.Result[delivery.Receipt]) {

	ctx := context.Background()

	c.mu.Lock()

	c.inflight = nil
	settled := c.settled
	defer close(settled)

	if c.closed {
		c.mu.Unlock()

		log.DebugS(ctx, "Dropping delivery result of closed form",
			"attempt", attempt)

		return
	}

	var event FormEvent
	receipt, err := result.Unpack()
	switch {
	case err != nil:
		log.WarnS(ctx, "Contact message delivery failed", err,
			"attempt", attempt)

		event = DeliveryFailedEvent{AttemptID: attempt, Err: err}

	default:
		log.InfoS(ctx, "Contact message delivered", "attempt", attempt,
			"status", receipt.Status)

		event = DeliverySucceededEvent{
			AttemptID: attempt,
			Receipt:   receipt,
			At:        c.cfg.Clock(),
		}
	}

	navigations, err := c.applyLocked(ctx, event)
	c.mu.Unlock()

	if err != nil {
		log.ErrorS(ctx, "Unable to apply delivery result", err)
		return
	}
	for _, path := range navigations {
		c.cfg.Navigator.NavigateTo(path)
	}
}

// AwaitSettled blocks until no delivery is in flight and returns the view at
// that point.
func (c *Controller) AwaitSettled(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Snapshot(), nil

	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Subscribe returns a channel receiving a snapshot after every state change
// and a function that ends the subscription. Updates are dropped for a
// subscriber whose buffer is full. The channel is closed on unsubscribe or
// Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}

	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close unmounts the form. Later calls to Dispatch fail with
// ErrControllerClosed and a delivery that resolves afterwards changes
// nothing. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.inflight != nil && c.cfg.CancelOnClose {
		if c.inflight.Cancel() {
			log.Debugf("Cancelled in-flight delivery on close")
		}
	}

	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// IsClosedErr reports whether err came from a closed controller.
func IsClosedErr(err error) bool {
	return errors.Is(err, ErrControllerClosed)
}

// eventName is used in log output.
func eventName(event FormEvent) string {
	switch event.(type) {
	case FieldChangedEvent:
		return "change"
	case SubmitEvent:
		return "submit"
	case DeliverySucceededEvent:
		return "delivery_succeeded"
	case DeliveryFailedEvent:
		return "delivery_failed"
	case SendAnotherEvent:
		return "send_another"
	case BackToHomeEvent:
		return "back_to_home"
	}

	return "unknown"
}
