package contact

import "github.com/finreveal/site/internal/delivery"

// FormOutboxEvent is the sealed interface for side effects requested by the
// form FSM. The controller executes them after the transition is applied.
type FormOutboxEvent interface {
	// isFormOutboxEvent seals the interface.
	isFormOutboxEvent()
}

func (DeliverMessage) isFormOutboxEvent()    {}
func (NavigateTo) isFormOutboxEvent()        {}
func (NotifyStateChange) isFormOutboxEvent() {}

// DeliverMessage asks for one call to the email delivery client.
type DeliverMessage struct {
	AttemptID uint64
	Params    delivery.TemplateParams
}

// NavigateTo asks the navigator to change route.
type NavigateTo struct {
	Path string
}

// NotifyStateChange tells subscribers that the submission state moved.
type NotifyStateChange struct {
	OldState StateName
	NewState StateName
}
