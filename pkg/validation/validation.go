package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinThreads = 1
	MaxThreads = 20
)

// FieldError is a rule violation on one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// Errors collects field errors so every problem is reported at once.
type Errors []*FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Add appends err when it is a *FieldError; other values are ignored.
func (e *Errors) Add(err error) {
	if fe, ok := err.(*FieldError); ok && fe != nil {
		*e = append(*e, fe)
	}
}

// Err returns nil when nothing was collected.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Fields maps field names to their messages.
func (e Errors) Fields() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fieldErr("threads", "must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fieldErr(fieldName, "is required")
	}
	return nil
}

// ValidateMinLength requires value to be present and at least n characters.
func ValidateMinLength(fieldName, value string, n int) error {
	if err := ValidateNonEmptyString(fieldName, value); err != nil {
		return err
	}
	if utf8.RuneCountInString(value) < n {
		return fieldErr(fieldName, "must have at least %d characters", n)
	}
	return nil
}

func ValidateEmail(fieldName, value string) error {
	if err := ValidateNonEmptyString(fieldName, value); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return fieldErr(fieldName, "is not a valid email address")
	}
	return nil
}

// ValidatePattern requires value to match re; msg describes the rule.
func ValidatePattern(fieldName, value string, re *regexp.Regexp, msg string) error {
	if !re.MatchString(value) {
		return fieldErr(fieldName, "%s", msg)
	}
	return nil
}

func ValidateEqual(fieldName, value, other string, msg string) error {
	if value != other {
		return fieldErr(fieldName, "%s", msg)
	}
	return nil
}

func ValidateIntRange(fieldName string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fieldErr(fieldName, "must be between %d and %d", lo, hi)
	}
	return nil
}

func ValidateOneOf(fieldName, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fieldErr(fieldName, "invalid value %q (must be one of: %s)", value, strings.Join(allowed, ", "))
}

func ValidateLanguageCode(code string, validCodes map[string]string) error {
	if _, ok := validCodes[code]; !ok {
		return fieldErr("language", "invalid language code: %s", code)
	}
	return nil
}
