package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/finreveal/site/internal/contact"
	"github.com/spf13/cobra"
)

var (
	// validateInput holds the field flags.
	validateInput contact.FormData

	// validateFormat is text or json.
	validateFormat string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check contact form values against the form rules",
	Long: `Check a set of contact form values without sending anything.

Prints whether each field is valid and whether the form could be submitted.
The command exits non-zero when the form is not submittable.`,
	Annotations: map[string]string{quietAnnotation: "true"},
	RunE:        runValidate,
}

func init() {
	validateCmd.Flags().StringVar(
		&validateInput.Name, "name", "", "Name",
	)
	validateCmd.Flags().StringVar(
		&validateInput.Phone, "phone", "", "Phone number",
	)
	validateCmd.Flags().StringVar(
		&validateInput.Email, "email", "", "Email address",
	)
	validateCmd.Flags().StringVar(
		&validateInput.Message, "message", "", "Message",
	)
	validateCmd.Flags().StringVar(
		&validateFormat, "format", "text", "Output format: text, json",
	)
}

// ValidationReport is the result of validate.
type ValidationReport struct {
	Valid       contact.ValidityMap `json:"valid"`
	Submittable bool                `json:"submittable"`
	Problems    []string            `json:"problems,omitempty"`
}

// errNotSubmittable makes the command exit non-zero after printing.
var errNotSubmittable = errors.New("form is not submittable")

func runValidate(cmd *cobra.Command, _ []string) error {
	report := buildReport(contact.NewValidator(nil), validateInput)

	if err := writeReport(cmd.OutOrStdout(), validateFormat, report); err != nil {
		return err
	}
	if !report.Submittable {
		return errNotSubmittable
	}

	return nil
}

func buildReport(v *contact.Validator, d contact.FormData) ValidationReport {
	report := ValidationReport{
		Valid:       v.Validity(d),
		Submittable: v.AggregateValid(d),
	}

	if len(d.EmptyFields()) > 0 {
		report.Problems = append(
			report.Problems, contact.RequiredFieldsMessage,
		)
	}
	for _, f := range contact.Fields {
		if d.Get(f) == "" {
			continue
		}
		if err := v.Check(f, d.Get(f)); err != nil {
			report.Problems = append(report.Problems, err.Error())
		}
	}

	return report
}

func writeReport(w io.Writer, format string, report ValidationReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)

	case "text", "":
		for _, f := range contact.Fields {
			mark := "ok"
			if !report.Valid[f] {
				mark = "invalid"
			}
			fmt.Fprintf(w, "%-8s %s\n", f, mark)
		}
		fmt.Fprintf(w, "submittable: %t\n", report.Submittable)
		for _, p := range report.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}

		return nil
	}

	return fmt.Errorf("unknown format %q", format)
}
