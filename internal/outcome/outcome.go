// Package outcome provides the tagged stage result threaded through every
// downstream adapter and the aggregator. Adapters normalize all transport and
// parsing failures into an Outcome; nothing crosses an adapter boundary as a
// raw error or panic.
package outcome

import "fmt"

// Kind classifies a stage failure.
type Kind string

const (
	// KindValidation marks a malformed request rejected before any network call.
	KindValidation Kind = "validation_error"
	// KindTimeout marks a downstream call that exceeded its configured timeout.
	KindTimeout Kind = "timeout"
	// KindRemote marks a downstream non-success HTTP status.
	KindRemote Kind = "remote_error"
	// KindInvalidResponse marks a success status with a payload failing shape validation.
	KindInvalidResponse Kind = "invalid_response"
	// KindNotReady marks a failed readiness gate on the annotation path.
	KindNotReady Kind = "not_ready"
)

// Error is the structured failure carried by a failed Outcome.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Status and Body carry the remote response for diagnostics when the
	// failure originated from a downstream HTTP exchange.
	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Outcome is the result of exactly one stage operation: Success(value) or
// Failure(kind, message). The zero value is an empty success.
type Outcome[T any] struct {
	Value T
	Err   *Error
}

// Success wraps a stage value.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Failure builds a failed outcome with the given kind and message.
func Failure[T any](kind Kind, format string, args ...any) Outcome[T] {
	return Outcome[T]{Err: &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// FailureErr wraps an already-built Error.
func FailureErr[T any](err *Error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}
