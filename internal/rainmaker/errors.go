package rainmaker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCategory classifies client failures so callers can switch on them.
type ErrorCategory string

const (
	ErrCatCredentials ErrorCategory = "CredentialsMissing"
	ErrCatAuth        ErrorCategory = "AuthenticationError"
	ErrCatNetwork     ErrorCategory = "NetworkError"
	ErrCatAPI         ErrorCategory = "APIError"
	ErrCatUnexpected  ErrorCategory = "UnexpectedError"
)

// Error is returned by every Client call that fails.
type Error struct {
	Category ErrorCategory
	Op       string // "login", "get nodes", "get params"
	Status   int    // HTTP status, 0 when no response was received
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on category so errors.Is(err, &Error{Category: ErrCatAuth}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// CategoryOf returns the category of err. Errors that did not come from the
// client are classified by their cause.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var rmErr *Error
	if errors.As(err, &rmErr) {
		return rmErr.Category
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCatNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrCatNetwork
	}
	return ErrCatUnexpected
}

func newError(cat ErrorCategory, op, msg string, cause error) *Error {
	return &Error{Category: cat, Op: op, Message: msg, Cause: cause}
}
