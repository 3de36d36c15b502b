// Package validation checks request payloads before they reach the
// services.  Each input shape has one function that normalizes the input in
// place and returns Errors listing every failed rule.
package validation

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned by every validator when at least one rule fails.
type Errors []FieldError

// Error joins the messages with ". ", the form used in API responses.
func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, ". ")
}

func (e *Errors) add(field, msg string) {
	*e = append(*e, FieldError{Field: field, Message: msg})
}

// err returns nil for an empty list so callers can compare against nil.
func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Optional is a JSON field that tells an absent key apart from an explicit
// null.  A value of the wrong JSON type is recorded as Invalid rather than
// failing the whole decode.
type Optional[T any] struct {
	Set     bool
	Null    bool
	Invalid bool
	Value   T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		o.Invalid = true
	}
	return nil
}

// Present reports whether the key carried a non-null value, which may
// still be Invalid.
func (o Optional[T]) Present() bool { return o.Set && !o.Null }

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const passwordRuleMsg = "Password must contain at least one uppercase letter, one lowercase letter, and one number"

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validEmail(s string) bool {
	return len(s) <= 254 && emailPattern.MatchString(s) && !strings.Contains(s, "..")
}

func strongPassword(s string) bool {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func checkName(errs *Errors, name string) {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		errs.add("name", "Name must be between 2 and 50 characters")
	}
}

// checkNewPassword applies the strength rules shared by registration and
// password change.
func checkNewPassword(errs *Errors, field, label, pw, confirmField, confirm, confirmMissing string) {
	switch {
	case pw == "":
		errs.add(field, label+" is required")
	case utf8.RuneCountInString(pw) < 6:
		errs.add(field, label+" must be at least 6 characters")
	case !strongPassword(pw):
		errs.add(field, passwordRuleMsg)
	}
	switch {
	case confirm == "":
		errs.add(confirmField, confirmMissing)
	case confirm != pw:
		errs.add(confirmField, "Passwords do not match")
	}
}

// TaskID rejects ids that are not UUIDs, so malformed ids never reach the
// store.
func TaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return Errors{{Field: "id", Message: "Invalid task ID"}}
	}
	return nil
}
