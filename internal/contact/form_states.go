package contact

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// StateName is the wire name of a submission state.
type StateName string

const (
	// StateNameEditing is the initial state: the form is editable and
	// submit is gated on validity.
	StateNameEditing StateName = "editing"

	// StateNameSubmitting means one delivery is in flight.
	StateNameSubmitting StateName = "submitting"

	// StateNameSubmitted shows the summary of a delivered message.
	StateNameSubmitted StateName = "submitted"

	// StateNameFailed is editing with a delivery error banner.
	StateNameFailed StateName = "failed"
)

// FormState is the sealed interface for submission states. Each state
// reacts to events and returns the transition to apply.
type FormState interface {
	// ProcessEvent handles an event against the current form data.
	ProcessEvent(ctx context.Context, event FormEvent, env *FormEnvironment,
		data FormData) (*FormTransition, error)

	// Name returns the wire name of the state.
	Name() StateName

	// String returns a human-readable name for the state.
	String() string

	// isFormState seals the interface.
	isFormState()
}

// FormTransition is the result of processing one event.
type FormTransition struct {
	// NextState is the state after the event. It is the receiver itself
	// when the state does not change.
	NextState FormState

	// NextData replaces the form data when set.
	NextData fn.Option[FormData]

	// OutboxEvents are the side effects to run, in order.
	OutboxEvents []FormOutboxEvent

	// Ignored is set when the event had no effect in this state.
	Ignored bool
}

// FormEnvironment is the configuration shared by all states of one form.
type FormEnvironment struct {
	Validator *Validator
	Routing   Routing
	HomePath  string

	lastAttempt uint64
}

// newAttempt hands out the id of the next delivery attempt.
func (e *FormEnvironment) newAttempt() uint64 {
	e.lastAttempt++
	return e.lastAttempt
}

var (
	_ FormState = (*StateEditing)(nil)
	_ FormState = (*StateSubmitting)(nil)
	_ FormState = (*StateSubmitted)(nil)
	_ FormState = (*StateFailed)(nil)
)

func ignore(s FormState) *FormTransition {
	return &FormTransition{NextState: s, Ignored: true}
}

func moveTo(from, to FormState, outbox ...FormOutboxEvent) *FormTransition {
	if from.Name() != to.Name() {
		outbox = append(outbox, NotifyStateChange{
			OldState: from.Name(),
			NewState: to.Name(),
		})
	}

	return &FormTransition{NextState: to, OutboxEvents: outbox}
}

// StateEditing is the initial state. Banner holds the required-fields
// message after a rejected submit.
type StateEditing struct {
	Banner string
}

func (*StateEditing) isFormState()    {}
func (*StateEditing) Name() StateName { return StateNameEditing }
func (*StateEditing) String() string  { return string(StateNameEditing) }

// ProcessEvent handles events while editing.
func (s *StateEditing) ProcessEvent(_ context.Context, event FormEvent,
	env *FormEnvironment, data FormData) (*FormTransition, error) {

	return processEditable(s, event, env, data)
}

// StateFailed is editing after a failed delivery. The form keeps every value
// so nothing has to be typed again.
type StateFailed struct {
	Message string
	Cause   error
}

func (*StateFailed) isFormState()    {}
func (*StateFailed) Name() StateName { return StateNameFailed }
func (*StateFailed) String() string  { return string(StateNameFailed) }

// ProcessEvent handles events after a failed delivery.
func (s *StateFailed) ProcessEvent(_ context.Context, event FormEvent,
	env *FormEnvironment, data FormData) (*FormTransition, error) {

	return processEditable(s, event, env, data)
}

// processEditable is shared by the two states in which the visitor types.
func processEditable(from FormState, event FormEvent, env *FormEnvironment,
	data FormData) (*FormTransition, error) {

	switch e := event.(type) {
	// Any edit clears the banner.
	case FieldChangedEvent:
		t := moveTo(from, &StateEditing{})
		t.NextData = fn.Some(data.With(e.Field, e.Value))

		return t, nil

	case SubmitEvent:
		if !env.Validator.Validity(data).All() {
			return ignore(from), nil
		}

		// The predicates may be swapped out, so emptiness is checked
		// on its own before anything is sent.
		if len(data.EmptyFields()) > 0 {
			return moveTo(
				from, &StateEditing{Banner: RequiredFieldsMessage},
			), nil
		}

		attempt := env.newAttempt()

		return moveTo(
			from,
			&StateSubmitting{AttemptID: attempt, Data: data},
			DeliverMessage{
				AttemptID: attempt,
				Params:    env.Routing.Params(data),
			},
		), nil

	case FocusEvent, BlurEvent, DeliverySucceededEvent,
		DeliveryFailedEvent, SendAnotherEvent, BackToHomeEvent:

		return ignore(from), nil
	}

	return nil, unknownEvent(event)
}

// StateSubmitting holds the attempt in flight and the data it was built
// from.
type StateSubmitting struct {
	AttemptID uint64
	Data      FormData
}

func (*StateSubmitting) isFormState()    {}
func (*StateSubmitting) Name() StateName { return StateNameSubmitting }
func (*StateSubmitting) String() string  { return string(StateNameSubmitting) }

// ProcessEvent handles events while a delivery is in flight.
func (s *StateSubmitting) ProcessEvent(_ context.Context, event FormEvent,
	_ *FormEnvironment, data FormData) (*FormTransition, error) {

	switch e := event.(type) {
	// Inputs stay editable, but the attempt keeps the data it was
	// started with.
	case FieldChangedEvent:
		return &FormTransition{
			NextState: s,
			NextData:  fn.Some(data.With(e.Field, e.Value)),
		}, nil

	case DeliverySucceededEvent:
		if e.AttemptID != s.AttemptID {
			return ignore(s), nil
		}

		return moveTo(s, &StateSubmitted{Summary: FormSummary{
			FormData:    s.Data,
			Status:      e.Receipt.Status,
			StatusText:  e.Receipt.Text,
			SubmittedAt: e.At,
		}}), nil

	case DeliveryFailedEvent:
		if e.AttemptID != s.AttemptID {
			return ignore(s), nil
		}

		return moveTo(s, &StateFailed{
			Message: DeliveryFailedMessage,
			Cause:   e.Err,
		}), nil

	// A second submit while one is in flight is dropped.
	case SubmitEvent, FocusEvent, BlurEvent, SendAnotherEvent,
		BackToHomeEvent:

		return ignore(s), nil
	}

	return nil, unknownEvent(event)
}

// StateSubmitted shows the summary of the delivered message.
type StateSubmitted struct {
	Summary FormSummary
}

func (*StateSubmitted) isFormState()    {}
func (*StateSubmitted) Name() StateName { return StateNameSubmitted }
func (*StateSubmitted) String() string  { return string(StateNameSubmitted) }

// ProcessEvent handles the two summary actions. Both discard the summary and
// clear the form.
func (s *StateSubmitted) ProcessEvent(_ context.Context, event FormEvent,
	env *FormEnvironment, _ FormData) (*FormTransition, error) {

	switch event.(type) {
	case SendAnotherEvent:
		t := moveTo(s, &StateEditing{})
		t.NextData = fn.Some(FormData{})

		return t, nil

	case BackToHomeEvent:
		t := moveTo(s, &StateEditing{}, NavigateTo{Path: env.HomePath})
		t.NextData = fn.Some(FormData{})

		return t, nil

	case FieldChangedEvent, SubmitEvent, FocusEvent, BlurEvent,
		DeliverySucceededEvent, DeliveryFailedEvent:

		return ignore(s), nil
	}

	return nil, unknownEvent(event)
}
