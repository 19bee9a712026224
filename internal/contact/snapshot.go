package contact

// Snapshot is everything a view needs to render the form. It is a copy and
// safe to hand to other goroutines.
type Snapshot struct {
	State     StateName      `json:"state"`
	Values    FormData       `json:"values"`
	Valid     ValidityMap    `json:"valid"`
	Invalid   map[Field]bool `json:"invalid"`
	Focused   Field          `json:"focused,omitempty"`
	CanSubmit bool           `json:"can_submit"`
	Pending   bool           `json:"pending"`
	Error     string         `json:"error,omitempty"`
	Summary   *FormSummary   `json:"summary,omitempty"`
}

// IsFocused reports whether f holds the focus.
func (s Snapshot) IsFocused(f Field) bool {
	return s.Focused != "" && s.Focused == f
}

// buildSnapshot derives the view of the FSM. focus is the empty Field when
// nothing is focused.
func buildSnapshot(fsm *FormFSM, v *Validator, focus Field) Snapshot {
	data := fsm.Data()
	snap := Snapshot{
		State:   fsm.State().Name(),
		Values:  data,
		Valid:   v.Validity(data),
		Invalid: v.ShowInvalid(data),
		Focused: focus,
	}

	switch s := fsm.State().(type) {
	case *StateEditing:
		snap.Error = s.Banner
		snap.CanSubmit = v.AggregateValid(data)

	case *StateFailed:
		snap.Error = s.Message
		snap.CanSubmit = v.AggregateValid(data)

	case *StateSubmitting:
		snap.Pending = true

	case *StateSubmitted:
		summary := s.Summary
		snap.Summary = &summary
	}

	return snap
}

// EmptySnapshot is the view of a fresh form, for callers that have no
// controller yet.
func EmptySnapshot(v *Validator) Snapshot {
	if v == nil {
		v = NewValidator(nil)
	}

	return buildSnapshot(NewFormFSM(&FormEnvironment{Validator: v}), v, "")
}
