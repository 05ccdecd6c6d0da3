// Package alerterr provides the typed error taxonomy shared across the
// pipeline. Callers branch on error kind, never on message text.
package alerterr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for retry/redelivery decisions.
type Kind string

const (
	// KindValidation marks malformed or incomplete input. Permanent: the
	// message will never succeed, so it must not be redelivered.
	KindValidation Kind = "validation"

	// KindTransient marks I/O timeouts, 5xx responses and backpressure.
	// The caller may redeliver.
	KindTransient Kind = "transient"

	// KindConflict marks a conditional state write that lost a race.
	KindConflict Kind = "conflict"

	// KindTrackerUnavailable marks a fail-fast result from an open
	// circuit. Treated as degraded success, never surfaced to the caller.
	KindTrackerUnavailable Kind = "tracker_unavailable"
)

// Error is the typed error carried through the pipeline.
type Error struct {
	Kind    Kind
	Message string
	// Fields names the offending fields for validation errors.
	Fields []string
	// Context is bounded debug context for operator triage
	// (source, message id, best-effort title/team, generator URL).
	Context map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithContext attaches a debug context entry and returns the error.
func (e *Error) WithContext(key, value string) *Error {
	if value == "" {
		return e
	}
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Validation builds a permanent validation error naming the violated fields.
func Validation(message string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps a retryable failure.
func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// Conflict marks a conditional write that lost a race.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// TrackerUnavailable marks a fail-fast result from an open circuit.
func TrackerUnavailable(message string) *Error {
	return &Error{Kind: KindTrackerUnavailable, Message: message}
}

// KindOf returns the kind of err, or KindTransient for untyped errors.
// Unknown failures are retried rather than dropped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsTrackerUnavailable reports whether err is a circuit fail-fast.
func IsTrackerUnavailable(err error) bool { return KindOf(err) == KindTrackerUnavailable }
