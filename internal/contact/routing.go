package contact

import (
	"time"

	"github.com/finreveal/site/internal/delivery"
)

// Routing is the fixed metadata attached to every message.
type Routing struct {
	// ToName addresses the receiving team in the email template.
	ToName string `yaml:"to_name"`

	// Subject is the email subject line.
	Subject string `yaml:"subject"`
}

// DefaultRouting returns the metadata used by the FinReveal site.
func DefaultRouting() Routing {
	return Routing{
		ToName:  "FinReveal Team",
		Subject: "New FinReveal Inquiry",
	}
}

// Params builds the template payload for d. Replies go to the submitter.
func (r Routing) Params(d FormData) delivery.TemplateParams {
	return delivery.TemplateParams{
		Name:    d.Name,
		Email:   d.Email,
		Phone:   d.Phone,
		Message: d.Message,
		ToName:  r.ToName,
		Subject: r.Subject,
		ReplyTo: d.Email,
	}
}

// FormSummary is the record of a delivered message shown after a successful
// submit. It is never modified once built.
type FormSummary struct {
	FormData

	Status      int       `json:"status"`
	StatusText  string    `json:"status_text"`
	SubmittedAt time.Time `json:"submitted_at"`
}
