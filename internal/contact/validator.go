package contact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// jsSpace matches what a browser treats as whitespace in a pattern, so the
// email rule accepts and rejects the same addresses the site's front end
// does.
const jsSpace = `\s\v\p{Z}\x{feff}`

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z ]{2,}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(
		`^[^` + jsSpace + `@]+@[^` + jsSpace + `@]+\.[^` + jsSpace + `@]+$`,
	)
)

// Predicate reports whether raw field text is acceptable. Predicates must
// be pure and total.
type Predicate func(value string) bool

// ValidName accepts letters and spaces, at least two characters.
func ValidName(value string) bool {
	return namePattern.MatchString(value)
}

// ValidPhone accepts exactly ten digits with no separators.
func ValidPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// ValidEmail accepts local@domain.tld where no part contains whitespace or
// another '@'.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// ValidMessage accepts any text that is not blank. Blank uses the same
// whitespace as jsSpace, which differs from unicode.IsSpace on U+0085 and
// U+FEFF.
func ValidMessage(value string) bool {
	return strings.TrimFunc(value, isJSSpace) != ""
}

// isJSSpace reports whether r is in the jsSpace class.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\ufeff':
		return true
	}

	return unicode.Is(unicode.Z, r)
}

// Rules maps each field onto its predicate.
type Rules map[Field]Predicate

// DefaultRules returns the site's validation rules.
func DefaultRules() Rules {
	return Rules{
		FieldName:    ValidName,
		FieldPhone:   ValidPhone,
		FieldEmail:   ValidEmail,
		FieldMessage: ValidMessage,
	}
}

// ruleText describes each default rule to a person.
var ruleText = map[Field]string{
	FieldName:    "name must be at least 2 letters or spaces",
	FieldPhone:   "phone must be exactly 10 digits",
	FieldEmail:   "email must look like name@example.com",
	FieldMessage: "message must not be blank",
}

// Describe returns the human readable rule for a field.
func Describe(f Field) string {
	return ruleText[f]
}

// ValidityMap holds one flag per field. It is always derived from a FormData
// and never stored next to it.
type ValidityMap map[Field]bool

// All reports whether every field is valid.
func (m ValidityMap) All() bool {
	for _, f := range Fields {
		if !m[f] {
			return false
		}
	}

	return true
}

// Validator applies a rule table to form data.
type Validator struct {
	rules Rules
}

// NewValidator builds a validator from rules. Fields missing from rules fall
// back to the default predicate; nil means DefaultRules.
func NewValidator(rules Rules) *Validator {
	merged := DefaultRules()
	for f, p := range rules {
		if p != nil {
			merged[f] = p
		}
	}

	return &Validator{rules: merged}
}

// Valid applies the predicate of one field.
func (v *Validator) Valid(f Field, value string) bool {
	p, ok := v.rules[f]
	if !ok {
		return false
	}

	return p(value)
}

// Validity evaluates every field of d.
func (v *Validator) Validity(d FormData) ValidityMap {
	m := make(ValidityMap, len(Fields))
	for _, f := range Fields {
		m[f] = v.Valid(f, d.Get(f))
	}

	return m
}

// AggregateValid reports whether the form may be submitted: every field is
// non-empty and passes its predicate.
func (v *Validator) AggregateValid(d FormData) bool {
	if len(d.EmptyFields()) > 0 {
		return false
	}

	return v.Validity(d).All()
}

// ShowInvalid returns the fields to render as invalid. An empty field is
// never shown as invalid.
func (v *Validator) ShowInvalid(d FormData) map[Field]bool {
	m := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		value := d.Get(f)
		m[f] = value != "" && !v.Valid(f, value)
	}

	return m
}

// Check returns nil when value passes the rule for f and an error carrying
// the rule text otherwise. It is shaped for prompt validators.
func (v *Validator) Check(f Field, value string) error {
	if v.Valid(f, value) {
		return nil
	}

	return errors.New(Describe(f))
}

// CheckForm reports everything that stops d from being submitted. Empty
// fields are reported first as ErrRequiredFields, then every failing rule.
func (v *Validator) CheckForm(d FormData) error {
	if empty := d.EmptyFields(); len(empty) > 0 {
		return fmt.Errorf("%w: %v", ErrRequiredFields, empty)
	}

	var errs []error
	for _, f := range Fields {
		if err := v.Check(f, d.Get(f)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
