package contact

import (
	"errors"
	"fmt"
)

// Banner texts shown above the form.
const (
	// RequiredFieldsMessage is shown when the submit-time check finds an
	// empty field.
	RequiredFieldsMessage = "All fields are required. Please check your form."

	// DeliveryFailedMessage is shown for any delivery failure, whatever
	// the underlying cause.
	DeliveryFailedMessage = "There was an error sending your message. " +
		"Please try again."
)

var (
	// ErrUnknownField is returned for an input name that is not part of
	// the form.
	ErrUnknownField = errors.New("unknown form field")

	// ErrRequiredFields is reported by the submit-time check that every
	// field is filled in, independent of the validity predicates.
	ErrRequiredFields = errors.New("required form fields are empty")

	// ErrControllerClosed is returned by Dispatch after Close.
	ErrControllerClosed = errors.New("contact form controller closed")
)

// ErrUnknownEvent is returned when a state receives an event type it does
// not know.
var ErrUnknownEvent = errors.New("unknown form event")

func unknownEvent(event FormEvent) error {
	return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
}
