package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"github.com/finreveal/site/internal/site"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message through the contact form",
	Long: `Fill in the FinReveal contact form from the terminal.

Every answer is checked with the same rules as the site. The message is
delivered through EmailJS; when delivery fails you are asked whether to
try again.`,
	Annotations: map[string]string{quietAnnotation: "true"},
	RunE:        runContact,
}

// Choices offered after a message was delivered.
const (
	choiceSendAnother = "Send another message"
	choiceBackToHome  = "Back to home"
)

// promptLabels are the questions asked for each field.
var promptLabels = map[contact.Field]string{
	contact.FieldName:    "Your Name",
	contact.FieldPhone:   "Phone Number",
	contact.FieldEmail:   "Email Address",
	contact.FieldMessage: "Your Message",
}

func runContact(cmd *cobra.Command, _ []string) error {
	client, err := appCfg.DeliveryClient(nil)
	if err != nil {
		return err
	}

	flow := newContactFlow(
		newSurveyDriver(cmd.OutOrStdout()), client, appCfg.Routing,
	)
	defer flow.Close()

	return flow.Run(cmd.Context())
}

// contactFlow walks one terminal user through the contact form. The form
// starts on the contact page and "back to home" ends the flow.
type contactFlow struct {
	driver    PromptDriver
	form      *contact.Controller
	location  *site.Location
	validator *contact.Validator
}

func newContactFlow(driver PromptDriver, client delivery.Client,
	routing contact.Routing) *contactFlow {

	validator := contact.NewValidator(nil)
	location := site.NewLocation(site.ContactPath)
	form := contact.NewController(&contact.ControllerConfig{
		Client:    client,
		Navigator: location,
		Validator: validator,
		Routing:   fn.Some(routing),
		HomePath:  site.HomePath,
	})

	return &contactFlow{
		driver:    driver,
		form:      form,
		location:  location,
		validator: validator,
	}
}

// Close unmounts the form.
func (f *contactFlow) Close() {
	f.form.Close()
}

// Run prompts, submits and repeats until the user goes back home.
func (f *contactFlow) Run(ctx context.Context) error {
	for {
		if err := f.fill(ctx); err != nil {
			return err
		}

		snap, err := f.deliver(ctx)
		if err != nil {
			return err
		}
		if snap.Summary == nil {
			return f.driver.Info(ctx, "Your message was not sent.")
		}

		home, err := f.afterSummary(ctx, snap)
		if err != nil || home {
			return err
		}
	}
}

// fill asks for every field, starting from the current values.
func (f *contactFlow) fill(ctx context.Context) error {
	for _, field := range contact.Fields {
		current := f.form.Snapshot().Values.Get(field)

		if _, err := f.form.Dispatch(
			ctx, contact.FocusEvent{Field: field},
		); err != nil {
			return err
		}

		value, err := f.driver.Input(ctx, InputConfig{
			Message:   promptLabels[field],
			Default:   current,
			Help:      contact.Describe(field),
			Multiline: field == contact.FieldMessage,
			Validator: func(s string) error {
				return f.validator.Check(field, s)
			},
		})
		if err != nil {
			return err
		}

		if _, err := f.form.Dispatch(ctx, contact.FieldChangedEvent{
			Field: field, Value: value,
		}); err != nil {
			return err
		}
	}

	_, err := f.form.Dispatch(ctx, contact.BlurEvent{})
	return err
}

// deliver submits the form and waits for the result. A failure asks
// whether to try again, one attempt per yes.
func (f *contactFlow) deliver(ctx context.Context) (contact.Snapshot, error) {
	for {
		snap, err := f.form.Dispatch(ctx, contact.SubmitEvent{})
		if err != nil {
			return contact.Snapshot{}, err
		}
		if !snap.Pending {
			// Only reachable with answers the prompts did not check.
			return snap, f.driver.Info(ctx, snap.Error)
		}

		if err := f.driver.Info(ctx, "Sending..."); err != nil {
			return contact.Snapshot{}, err
		}

		snap, err = f.form.AwaitSettled(ctx)
		if err != nil {
			return contact.Snapshot{}, err
		}
		if snap.Summary != nil {
			return snap, nil
		}

		if err := f.driver.Info(ctx, snap.Error); err != nil {
			return contact.Snapshot{}, err
		}

		retry, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: "Try again?",
			Default: true,
		})
		if err != nil || !retry {
			return snap, err
		}
	}
}

// afterSummary shows the delivered message and reports whether the user
// went back home.
func (f *contactFlow) afterSummary(ctx context.Context,
	snap contact.Snapshot) (bool, error) {

	if err := f.driver.Info(ctx, formatSummary(snap.Summary)); err != nil {
		return false, err
	}

	choice, err := f.driver.Select(ctx, SelectConfig{
		Message: "What next?",
		Options: []string{choiceSendAnother, choiceBackToHome},
	})
	if err != nil {
		return false, err
	}

	if choice == 0 {
		_, err := f.form.Dispatch(ctx, contact.SendAnotherEvent{})
		return false, err
	}

	if _, err := f.form.Dispatch(ctx, contact.BackToHomeEvent{}); err != nil {
		return false, err
	}

	return true, f.driver.Info(ctx, fmt.Sprintf(
		"Returning to %s", f.location.CurrentPath(),
	))
}

func formatSummary(s *contact.FormSummary) string {
	return fmt.Sprintf(`Message Sent Successfully!

Name:      %s
Email:     %s
Phone:     %s
Message:   %s
Submitted: %s

Thank you for reaching out! A member of our team will get back to you soon.`,
		s.Name, s.Email, s.Phone, s.Message,
		s.SubmittedAt.Format(time.RFC1123),
	)
}
