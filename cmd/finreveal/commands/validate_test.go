package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/finreveal/site/internal/contact"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	t.Parallel()

	v := contact.NewValidator(nil)

	report := buildReport(v, contact.FormData{
		Name: "Jo", Phone: "1234567890", Email: "a@b.co", Message: "hi",
	})
	require.True(t, report.Submittable)
	require.Empty(t, report.Problems)

	report = buildReport(v, contact.FormData{
		Name: "J", Phone: "1234567890",
	})
	require.False(t, report.Submittable)
	require.False(t, report.Valid[contact.FieldName])
	require.True(t, report.Valid[contact.FieldPhone])
	require.Equal(t, []string{
		contact.RequiredFieldsMessage,
		contact.Describe(contact.FieldName),
	}, report.Problems)
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	report := buildReport(contact.NewValidator(nil), contact.FormData{
		Name: "Jo", Phone: "12", Email: "a@b.co", Message: "hi",
	})

	var text bytes.Buffer
	require.NoError(t, writeReport(&text, "text", report))
	require.Contains(t, text.String(), "phone    invalid\n")
	require.Contains(t, text.String(), "name     ok\n")
	require.Contains(t, text.String(), "submittable: false\n")

	var raw bytes.Buffer
	require.NoError(t, writeReport(&raw, "json", report))

	var decoded ValidationReport
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	require.Equal(t, report, decoded)

	require.Error(t, writeReport(&raw, "yaml", report))
}
