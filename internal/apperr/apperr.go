// Package apperr classifies the failures the owner core reports to its shell.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure, which decides how the shell reacts to it.
type Kind string

const (
	// Validation is bad user input, caught before any network call.
	Validation Kind = "validation"
	// Transport is an unreachable backend or a timeout. Retry is manual.
	Transport Kind = "transport"
	// Protocol is a response whose status or shape was not what the contract says.
	Protocol Kind = "protocol"
	// Auth is a missing or expired credential. The shell forces a new login.
	Auth Kind = "auth"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int // HTTP status when one was received
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidation builds a validation error with a fixed message.
func NewValidation(message string) *Error {
	return &Error{Kind: Validation, Message: message}
}

// NewTransport wraps a network level failure.
func NewTransport(op string, err error) *Error {
	return &Error{Kind: Transport, Op: op, Err: err}
}

// NewProtocol reports an unexpected status or response shape.
func NewProtocol(op, message string, err error) *Error {
	return &Error{Kind: Protocol, Op: op, Message: message, Err: err}
}

// NewAuth reports a missing or rejected credential.
func NewAuth(op, message string) *Error {
	return &Error{Kind: Auth, Op: op, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == Validation }
func IsTransport(err error) bool  { return KindOf(err) == Transport }
func IsProtocol(err error) bool   { return KindOf(err) == Protocol }
func IsAuth(err error) bool       { return KindOf(err) == Auth }
