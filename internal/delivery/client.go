// Package delivery sends contact-form messages to the outbound email
// service. The controller sees only the Client interface; the EmailJS client
// and the decorators in this package are wired together by the caller.
package delivery

import (
	"context"
	"errors"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrMissingCredentials is returned when a client is built without the
// service id, template id or public key.
var ErrMissingCredentials = errors.New("missing email delivery credentials")

// TemplateParams is the message payload handed to the email template.
type TemplateParams struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	ToName  string `json:"to_name"`
	Subject string `json:"subject"`
	ReplyTo string `json:"reply_to"`
}

// Receipt is what the email service returns for an accepted message.
type Receipt struct {
	Status int    `json:"status"`
	Text   string `json:"text"`
}

// Credentials identify the account, service and template used to send.
type Credentials struct {
	ServiceID  string
	TemplateID string
	PublicKey  string

	// PrivateKey is optional. When set it is sent as the access token,
	// which EmailJS requires for calls made outside a browser when the
	// account enforces it.
	PrivateKey string
}

// Validate checks that the mandatory credentials are present.
func (c Credentials) Validate() error {
	var missing []string
	if c.ServiceID == "" {
		missing = append(missing, "service id")
	}
	if c.TemplateID == "" {
		missing = append(missing, "template id")
	}
	if c.PublicKey == "" {
		missing = append(missing, "public key")
	}
	if len(missing) > 0 {
		return errors.Join(
			ErrMissingCredentials,
			errors.New(strings.Join(missing, ", ")),
		)
	}

	return nil
}

// Client delivers one message. Implementations must be safe for concurrent
// use; any failure is reported as an error result.
type Client interface {
	Send(ctx context.Context, params TemplateParams) fn.Result[Receipt]
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context,
	params TemplateParams) fn.Result[Receipt]

// Send calls f.
func (f ClientFunc) Send(ctx context.Context,
	params TemplateParams) fn.Result[Receipt] {

	return f(ctx, params)
}
