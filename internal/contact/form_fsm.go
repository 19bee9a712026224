package contact

import (
	"context"
	"fmt"
)

// FormFSM couples the current submission state with the form data. It is
// not safe for concurrent use; Controller serializes access to it.
type FormFSM struct {
	env   *FormEnvironment
	state FormState
	data  FormData
}

// NewFormFSM returns an FSM in the editing state with an empty form.
func NewFormFSM(env *FormEnvironment) *FormFSM {
	if env.Validator == nil {
		env.Validator = NewValidator(nil)
	}

	return &FormFSM{
		env:   env,
		state: &StateEditing{},
	}
}

// State returns the current state.
func (f *FormFSM) State() FormState {
	return f.state
}

// StateString returns the wire name of the current state.
func (f *FormFSM) StateString() string {
	return f.state.String()
}

// Data returns the current form data.
func (f *FormFSM) Data() FormData {
	return f.data
}

// ProcessEvent applies an event and returns the outbox events to dispatch.
// The returned transition tells whether the event was ignored.
func (f *FormFSM) ProcessEvent(ctx context.Context,
	event FormEvent) (*FormTransition, error) {

	transition, err := f.state.ProcessEvent(ctx, event, f.env, f.data)
	if err != nil {
		return nil, fmt.Errorf("process event %T: %w", event, err)
	}

	f.state = transition.NextState
	transition.NextData.WhenSome(func(d FormData) {
		f.data = d
	})

	return transition, nil
}
