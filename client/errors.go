package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAuthExpired is returned when a 401 could not be recovered by refreshing
// the access token. The stored credentials have been cleared by the time a
// caller sees it.
var ErrAuthExpired = errors.New("session expired")

// ErrInvalidEndpoint is returned for endpoints that do not start with "/".
var ErrInvalidEndpoint = errors.New("endpoint must begin with '/'")

// errNoRefreshToken makes the refresh cycle fail without a network call.
var errNoRefreshToken = errors.New("no refresh token stored")

// errSessionCleared is returned to a request whose token was cleared by a
// concurrent failed refresh.
var errSessionCleared = errors.New("session was cleared by a concurrent request")

const unknownErrorMessage = "unknown error"

// HTTPError is a non-2xx response that was not a recoverable 401.
type HTTPError struct {
	StatusCode int
	Message    string
	// Details holds the decoded response body as is: usually a
	// map[string]any, but DRF may also send a list of messages. It is an
	// empty map when the body was missing or was not JSON.
	Details any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// FieldErrors extracts validation messages keyed by field, as returned by the
// API for rejected payloads ({"name": ["This field is required."]}).
// The "detail" and "message" keys are not fields and are skipped.
func (e *HTTPError) FieldErrors() map[string][]string {
	out := map[string][]string{}
	obj, _ := e.Details.(map[string]any)
	for field, raw := range obj {
		if field == "detail" || field == "message" {
			continue
		}
		switch v := raw.(type) {
		case string:
			out[field] = []string{v}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out[field] = append(out[field], s)
				}
			}
		}
	}
	return out
}

// Messages returns the strings of a body that is a bare JSON list, which DRF
// sends for non-field errors (["Animal limit reached."]).
func (e *HTTPError) Messages() []string {
	list, _ := e.Details.([]any)
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Summary renders the message followed by any list messages and field errors
// in a stable order.
func (e *HTTPError) Summary() string {
	messages := e.Messages()
	fields := e.FieldErrors()
	if len(messages) == 0 && len(fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(e.Message)
	for _, m := range messages {
		fmt.Fprintf(&b, "\n  %s", m)
	}
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, strings.Join(fields[name], "; "))
	}
	return b.String()
}

// NetworkError means the exchange with the server could not be completed.
// Err is the transport error (which may be a context error).
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthExpired reports whether err is (or wraps) ErrAuthExpired.
func IsAuthExpired(err error) bool { return errors.Is(err, ErrAuthExpired) }

// newHTTPError normalizes a failed response body. The message is the first
// non-empty string among "detail" and "message"; other value types are
// ignored rather than failing the decode.
func newHTTPError(status int, body []byte) *HTTPError {
	var details any = map[string]any{}
	if len(body) > 0 {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err == nil && decoded != nil {
			details = decoded
		}
	}

	msg := unknownErrorMessage
	if obj, ok := details.(map[string]any); ok {
		for _, key := range []string{"detail", "message"} {
			if s, ok := obj[key].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}
	return &HTTPError{StatusCode: status, Message: msg, Details: details}
}
