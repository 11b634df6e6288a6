package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure. Kinds are stable and safe to expose to clients.
type Kind string

const (
	KindUnauthenticated       Kind = "unauthenticated"
	KindMismatch              Kind = "mismatch"
	KindConfigurationNotFound Kind = "configuration_not_found"
	KindInvalidConfiguration  Kind = "invalid_configuration"
	KindIncompleteIdentity    Kind = "incomplete_identity"
	KindPaymentProvider       Kind = "payment_provider_error"
	KindNotFound              Kind = "not_found"
	KindInvalidInput          Kind = "invalid_input"
	KindConflict              Kind = "conflict"
	KindInternal              Kind = "internal"
)

// Error is returned by every service operation that fails. Message is meant
// for the end user, Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated, Message: "please log in again"}
	ErrMismatch              = &Error{Kind: KindMismatch, Message: "credential does not match user"}
	ErrConfigurationNotFound = &Error{Kind: KindConfigurationNotFound, Message: "configuration not found"}
	ErrInvalidConfiguration  = &Error{Kind: KindInvalidConfiguration, Message: "configuration has unsupported options"}
	ErrIncompleteIdentity    = &Error{Kind: KindIncompleteIdentity, Message: "account has no email address"}
	ErrPaymentProvider       = &Error{Kind: KindPaymentProvider, Message: "payment provider unavailable, try again"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Message: "invalid request"}
	ErrConflict              = &Error{Kind: KindConflict, Message: "order changed, try again"}
	ErrInternal              = &Error{Kind: KindInternal, Message: "something went wrong"}
)

func newError(base *Error, cause error) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Err: cause}
}

func newErrorf(base *Error, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: base.Kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// HTTPStatus maps a kind to the status code the API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated, KindMismatch:
		return http.StatusUnauthorized
	case KindConfigurationNotFound, KindNotFound:
		return http.StatusNotFound
	case KindInvalidConfiguration, KindIncompleteIdentity:
		return http.StatusUnprocessableEntity
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindPaymentProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts the service error from err. Unknown errors become internal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return newError(ErrInternal, err)
}
