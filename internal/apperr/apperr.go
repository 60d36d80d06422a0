// Package apperr defines the stable error codes the core surfaces to
// callers.
package apperr

import "fmt"

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeIdempotencyConflict Code = "IDEMPOTENCY_CONFLICT"
	CodeBookingFailed       Code = "BOOKING_FAILED"
	CodeProviderError       Code = "PROVIDER_ERROR"
	CodeReplanFailed        Code = "REPLAN_FAILED"
	CodeRollbackExpired     Code = "ROLLBACK_EXPIRED"
	CodeStorageUnavailable  Code = "STORAGE_UNAVAILABLE"
)

// Error is the single error type the core returns across package
// boundaries. Handlers translate it to an HTTP status; nothing downstream
// of a service method should need to inspect anything but Code.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithDetails(code Code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

func Validation(message string) *Error { return New(CodeValidation, message) }
func NotFound(message string) *Error   { return New(CodeNotFound, message) }
func Conflict(message string) *Error   { return New(CodeConflict, message) }

func IdempotencyConflict(message string) *Error {
	return New(CodeIdempotencyConflict, message)
}

func BookingFailed(message string) *Error { return New(CodeBookingFailed, message) }

func ProviderError(transient bool, message string) *Error {
	return WithDetails(CodeProviderError, message, map[string]any{"transient": transient})
}

func ReplanFailed(message string) *Error       { return New(CodeReplanFailed, message) }
func RollbackExpired(message string) *Error    { return New(CodeRollbackExpired, message) }
func StorageUnavailable(message string) *Error { return New(CodeStorageUnavailable, message) }

// As extracts an *Error from err, reporting whether it was one.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// HTTPStatus is deliberately absent from this package: the mapping from
// Code to a transport status is an HTTP-layer concern, done by the
// writeErr helper in each domain package's handlers.go, not a core one.
