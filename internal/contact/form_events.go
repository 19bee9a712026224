package contact

import (
	"time"

	"github.com/finreveal/site/internal/delivery"
)

// FormEvent is the sealed interface for everything that can happen to a
// contact form: user actions and delivery resolutions.
type FormEvent interface {
	// isFormEvent seals the interface.
	isFormEvent()
}

func (FieldChangedEvent) isFormEvent()      {}
func (FocusEvent) isFormEvent()             {}
func (BlurEvent) isFormEvent()              {}
func (SubmitEvent) isFormEvent()            {}
func (DeliverySucceededEvent) isFormEvent() {}
func (DeliveryFailedEvent) isFormEvent()    {}
func (SendAnotherEvent) isFormEvent()       {}
func (BackToHomeEvent) isFormEvent()        {}

// FieldChangedEvent carries the new raw text of one input.
type FieldChangedEvent struct {
	Field Field
	Value string
}

// FocusEvent is sent when an input gains focus.
type FocusEvent struct {
	Field Field
}

// BlurEvent is sent when the focused input loses focus.
type BlurEvent struct{}

// SubmitEvent is the submit button.
type SubmitEvent struct{}

// DeliverySucceededEvent resolves the attempt with a receipt.
type DeliverySucceededEvent struct {
	AttemptID uint64
	Receipt   delivery.Receipt
	At        time.Time
}

// DeliveryFailedEvent resolves the attempt with a failure.
type DeliveryFailedEvent struct {
	AttemptID uint64
	Err       error
}

// SendAnotherEvent is the "send another message" button of the summary.
type SendAnotherEvent struct{}

// BackToHomeEvent is the "back to home" button of the summary.
type BackToHomeEvent struct{}
