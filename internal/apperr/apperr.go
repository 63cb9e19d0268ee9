// Package apperr defines the closed set of request-level failures raised by
// the auth flows and the factoid API.  Handlers branch on Kind rather than
// on message text.
package apperr

import (
	"errors"
	"strings"
)

type Kind int

const (
	NotFound Kind = iota + 1
	ValidationFailed
	Unauthorized
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ValidationFailed:
		return "validation_failed"
	case Unauthorized:
		return "unauthorized"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Failure is one rejected input field.
type Failure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind     Kind
	Message  string
	Failures []Failure // set for ValidationFailed
}

func (e *Error) Error() string { return e.Message }

func New(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

// Invalid wraps a list of field failures.  The message joins every failure
// so it can be flashed as a single line.
func Invalid(failures []Failure) *Error {
	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, f.Message)
	}
	return &Error{Kind: ValidationFailed, Message: strings.Join(msgs, "; "), Failures: failures}
}

// KindOf reports the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Is(err error, k Kind) bool { return KindOf(err) == k }
