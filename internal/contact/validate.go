package contact

import (
	"regexp"
	"strings"
)

var (
	textPattern  = regexp.MustCompile(`^[a-zA-Z\s]*$`)
	emailPattern = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)
	phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)
)

// Field names a validated form field.
type Field int

const (
	FieldFirstName Field = iota
	FieldLastName
	FieldEmail
	FieldPhone
	FieldCity
	FieldLabels // Never validated; present so forms can address every input.
)

// ValidatedFields lists the fields checked by Validate, in form order.
var ValidatedFields = []Field{FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldCity}

// String returns the form label of the field.
func (f Field) String() string {
	switch f {
	case FieldFirstName:
		return "first name"
	case FieldLastName:
		return "last name"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldCity:
		return "city"
	case FieldLabels:
		return "labels"
	default:
		return "unknown"
	}
}

// Form holds raw form input as typed by the user.
type Form struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Labels    string
}

// Value returns the raw value of field f.
func (f Form) Value(field Field) string {
	switch field {
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldCity:
		return f.City
	case FieldLabels:
		return f.Labels
	default:
		return ""
	}
}

// Result is the outcome of validating a Form. It is a value; callers pass it
// straight to the save call instead of reading form state again.
type Result struct {
	Contact Contact
	Invalid []Field
}

// Valid reports whether every validated field passed.
func (r Result) Valid() bool {
	return len(r.Invalid) == 0
}

// IsInvalid reports whether field f failed validation.
func (r Result) IsInvalid(f Field) bool {
	for _, inv := range r.Invalid {
		if inv == f {
			return true
		}
	}
	return false
}

// Validate checks every validated field of form without short-circuiting and
// returns the contact built from it together with the fields that failed.
// The contact carries id so the same result serves create and update.
func Validate(form Form, id ID) Result {
	checks := [...]bool{
		FieldFirstName: validText(form.FirstName),
		FieldLastName:  validText(form.LastName),
		FieldEmail:     emailPattern.MatchString(form.Email),
		FieldPhone:     phonePattern.MatchString(form.Phone),
		FieldCity:      validText(form.City),
	}

	var invalid []Field
	for _, f := range ValidatedFields {
		if !checks[f] {
			invalid = append(invalid, f)
		}
	}

	return Result{
		Contact: Contact{
			ID:        id,
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Email:     form.Email,
			Phone:     form.Phone,
			City:      form.City,
			Labels:    form.Labels,
		},
		Invalid: invalid,
	}
}

// validText accepts non-blank values made only of letters and whitespace.
func validText(s string) bool {
	return textPattern.MatchString(s) && strings.TrimSpace(s) != ""
}
