// Package errors defines the failure taxonomy of a widget submission and the
// suggestion-carrying errors returned by the CLI.
//
// A submission can fail in exactly two ways:
//
//	ServerRejection  the delivery endpoint answered with a non-2xx status
//	NetworkFailure   the request could not complete at all
//
// Both are recoverable: the widget moves to its error state and renders
// UserMessage(err). Neither is fatal to the widget.
package errors

import (
	stderrors "errors"
	"fmt"
)

const (
	// DefaultRejectionMessage is shown when the endpoint rejects a submission
	// without saying why.
	DefaultRejectionMessage = "Something went wrong"

	// NetworkErrorMessage is shown for every NetworkFailure regardless of cause.
	NetworkErrorMessage = "Network error"
)

// ServerRejection is returned when the delivery endpoint responds with a
// status outside the 2xx range.
type ServerRejection struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *ServerRejection) Error() string {
	return fmt.Sprintf("delivery rejected with status %d: %s", e.Status, e.UserMessage())
}

// UserMessage returns the text shown to the user.
func (e *ServerRejection) UserMessage() string {
	if e.Message == "" {
		return DefaultRejectionMessage
	}
	return e.Message
}

// NetworkFailure is returned when the delivery request could not complete.
// The underlying cause is kept for Unwrap but is never shown or logged.
type NetworkFailure struct {
	cause error
}

// NewNetworkFailure wraps cause as a NetworkFailure.
func NewNetworkFailure(cause error) *NetworkFailure {
	return &NetworkFailure{cause: cause}
}

// Error implements the error interface
func (e *NetworkFailure) Error() string {
	return "delivery request failed"
}

// Unwrap returns the original error
func (e *NetworkFailure) Unwrap() error {
	return e.cause
}

// UserMessage returns the text shown to the user.
func (e *NetworkFailure) UserMessage() string {
	return NetworkErrorMessage
}

// UserMessage maps any submission error to its user-facing text. Errors
// outside the taxonomy are treated as network failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rejection *ServerRejection
	if stderrors.As(err, &rejection) {
		return rejection.UserMessage()
	}
	return NetworkErrorMessage
}

// IsRejection reports whether err is a ServerRejection.
func IsRejection(err error) bool {
	var rejection *ServerRejection
	return stderrors.As(err, &rejection)
}

// IsNetworkFailure reports whether err is a NetworkFailure.
func IsNetworkFailure(err error) bool {
	var failure *NetworkFailure
	return stderrors.As(err, &failure)
}
