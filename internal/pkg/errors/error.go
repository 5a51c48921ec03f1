package xerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error. The HTTP layer maps kinds to status codes.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindAuthentication    Kind = "AUTHENTICATION_FAILED"
	KindTokenMissing      Kind = "TOKEN_MISSING"
	KindTokenInvalid      Kind = "TOKEN_INVALID"
	KindTokenExpired      Kind = "TOKEN_EXPIRED"
	KindTokenTypeMismatch Kind = "TOKEN_TYPE_MISMATCH"
	KindTokenMismatch     Kind = "TOKEN_MISMATCH"
	KindSessionInactive   Kind = "SESSION_INACTIVE"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindInternal          Kind = "INTERNAL"
)

// Error is the application error carried across layers.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
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

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Common reusable application errors
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrUnauthorized      = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidInput      = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict: resource already exists"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal server error"}
	ErrRateLimited       = &Error{Kind: KindRateLimited, Message: "too many requests"}
	ErrTokenMissing      = &Error{Kind: KindTokenMissing, Message: "missing authorization token"}
	ErrTokenInvalid      = &Error{Kind: KindTokenInvalid, Message: "invalid token"}
	ErrTokenExpired      = &Error{Kind: KindTokenExpired, Message: "token expired"}
	ErrTokenTypeMismatch = &Error{Kind: KindTokenTypeMismatch, Message: "invalid token type"}
	ErrTokenMismatch     = &Error{Kind: KindTokenMismatch, Message: "token mismatch"}
	ErrSessionInactive   = &Error{Kind: KindSessionInactive, Message: "session not found or inactive"}
)

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithKind attaches a kind and message to a lower-level cause.
func WithKind(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithDetails returns a copy of e carrying the given details.
func (e *Error) WithDetails(details map[string]string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf reports the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
