// Package validation collects per-field payload errors and renders them as
// the {"field": ["message", ...]} map returned with 400 responses.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MsgRequired    = "This field is required."
	MsgBlank       = "This field may not be blank."
	MsgInvalidPK   = "Invalid pk \"%d\" - object does not exist."
	MsgInvalidMail = "Enter a valid email address."
)

// Errors maps a field name to its messages. The non-field key is
// "non_field_errors".
type Errors map[string][]string

// NonField is the key used for errors that are not tied to one field.
const NonField = "non_field_errors"

// New returns an Errors with a single message.
func New(field, msg string) Errors {
	return Errors{field: {msg}}
}

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Err returns e as an error, or nil when no message was added.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// As extracts field errors from err.
func As(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Required adds an error when s is empty after trimming.
func (e Errors) Required(field string, s *string) {
	switch {
	case s == nil:
		e.Add(field, MsgRequired)
	case strings.TrimSpace(*s) == "":
		e.Add(field, MsgBlank)
	}
}

// MaxLength adds an error when s has more than n characters.
func (e Errors) MaxLength(field string, s string, n int) {
	if utf8.RuneCountInString(s) > n {
		e.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", n))
	}
}

// Email adds an error when s is not a bare email address. Empty is allowed.
func (e Errors) Email(field, s string) {
	if s == "" {
		return
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		e.Add(field, MsgInvalidMail)
	}
}

var usernamePattern = regexp.MustCompile(`^[\pL\pN@.+\-_]+$`)

// Username checks the username character set and length.
func (e Errors) Username(field, s string) {
	if s == "" {
		e.Add(field, MsgBlank)
		return
	}
	e.MaxLength(field, s, 150)
	if !usernamePattern.MatchString(s) {
		e.Add(field, "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

// InvalidPK returns the message for a reference to a missing row.
func InvalidPK(id int64) string {
	return fmt.Sprintf(MsgInvalidPK, id)
}
