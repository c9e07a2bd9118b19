// Package apperr defines the error taxonomy shared by every service.
// Handlers map a Kind to an HTTP status once, at the boundary, instead of
// string-matching error messages per endpoint.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInsufficientFunds
	KindInactiveAccount
	KindConflict
	KindInvalidTransition
	KindUpstreamUnavailable
	// KindInconsistentState marks a transfer where money moved but was not
	// fully applied (debit succeeded, credit and compensation both failed).
	// Operators must be able to tell this apart from an ordinary failure.
	KindInconsistentState
)

// Code returns the stable machine-readable code serialised in error bodies.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindInactiveAccount:
		return "WALLET_INACTIVE"
	case KindConflict:
		return "CONFLICT"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindInconsistentState:
		return "INCONSISTENT_STATE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a Kind to the status used by the collaborator services.
// The transfer API overrides InsufficientFunds to 422 at its own boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInsufficientFunds, KindInactiveAccount, KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, unwrapping as needed.
// Plain errors classify as KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
