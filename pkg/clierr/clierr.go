package clierr

import "errors"

// Type categorizes a CLI-facing error for consistent messaging & exit codes.
type Type string

const (
	Validation Type = "validation"
	Auth       Type = "auth"
	HTTP       Type = "http"
	Network    Type = "network"
	NotFound   Type = "not_found"
	Internal   Type = "internal"
)

// Process exit codes per error type.
const (
	ExitOK         = 0
	ExitInternal   = 1
	ExitValidation = 2
	ExitAuth       = 3
	ExitHTTP       = 4
	ExitNetwork    = 5
	ExitNotFound   = 6
)

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// ExitCode returns the process exit code for the error type.
func (e *Error) ExitCode() int {
	switch e.Type {
	case Validation:
		return ExitValidation
	case Auth:
		return ExitAuth
	case HTTP:
		return ExitHTTP
	case Network:
		return ExitNetwork
	case NotFound:
		return ExitNotFound
	default:
		return ExitInternal
	}
}

// ExitCode maps any error to an exit code. Errors that are not *Error are
// internal; nil is success.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitInternal
}
