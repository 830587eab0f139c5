package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for transport-level mapping.
type Kind string

const (
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindNotFound          Kind = "NOT_FOUND"
	KindNotAuthorized     Kind = "NOT_AUTHORIZED"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindConflict          Kind = "CONFLICT"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindUpstreamFailure   Kind = "UPSTREAM_FAILURE"
	KindInternal          Kind = "INTERNAL"
)

// Error is a service error carrying a Kind and a caller-facing message.
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

func (e *Error) Unwrap() error { return e.Err }

// E constructs a service error of the given kind.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a service error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Shared sentinel errors used across services.
var (
	ErrRideNotFound      = E(KindNotFound, "ride not found")
	ErrDriverNotFound    = E(KindNotFound, "driver not found")
	ErrWalletNotFound    = E(KindNotFound, "wallet not found")
	ErrPaymentNotFound   = E(KindNotFound, "payment not found")
	ErrActiveRideExists  = E(KindConflict, "rider already has an active ride")
	ErrRideConflict      = E(KindConflict, "ride was modified concurrently")
	ErrNotParty          = E(KindNotAuthorized, "caller is not a party to this ride")
	ErrInsufficientFunds = E(KindInsufficientFunds, "insufficient wallet balance")
)
