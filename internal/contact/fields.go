package contact

import "fmt"

// Field names one input of the contact form.
type Field string

const (
	// FieldName is the submitter's display name.
	FieldName Field = "name"

	// FieldPhone is a ten digit phone number.
	FieldPhone Field = "phone"

	// FieldEmail is the submitter's email address, also used as reply-to.
	FieldEmail Field = "email"

	// FieldMessage is the free-form message body.
	FieldMessage Field = "message"
)

// Fields lists the form inputs in render order.
var Fields = []Field{FieldName, FieldPhone, FieldEmail, FieldMessage}

// ParseField maps an input name onto a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldName, FieldPhone, FieldEmail, FieldMessage:
		return f, nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// String returns the input name.
func (f Field) String() string {
	return string(f)
}

// FormData holds the raw text of every input. The zero value is an
// untouched form: every field present and empty.
type FormData struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Get returns the value of one field.
func (d FormData) Get(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldPhone:
		return d.Phone
	case FieldEmail:
		return d.Email
	case FieldMessage:
		return d.Message
	}

	return ""
}

// With returns a copy of d with one field replaced. Unknown fields leave
// the copy unchanged.
func (d FormData) With(f Field, value string) FormData {
	switch f {
	case FieldName:
		d.Name = value
	case FieldPhone:
		d.Phone = value
	case FieldEmail:
		d.Email = value
	case FieldMessage:
		d.Message = value
	}

	return d
}

// EmptyFields returns the fields still holding the empty string.
func (d FormData) EmptyFields() []Field {
	var empty []Field
	for _, f := range Fields {
		if d.Get(f) == "" {
			empty = append(empty, f)
		}
	}

	return empty
}
