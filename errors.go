package venicebridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: rate limits, temporary network issues, server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, insufficient permissions, model not found.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the caller provided invalid input that must be corrected.
	// Examples: empty prompt, non-positive step count, unknown aspect ratio.
	ErrorUserInput ErrorCategory = "user_input"
)

// ErrorKind identifies which stage of the pipeline produced an error.
type ErrorKind string

const (
	// KindValidation marks bad caller input caught before any network call.
	KindValidation ErrorKind = "validation"

	// KindTransport marks a network or HTTP failure.
	KindTransport ErrorKind = "transport"

	// KindDecode marks an unrecognized response shape. Retrying will not
	// fix a malformed body, so decode errors are always permanent.
	KindDecode ErrorKind = "decode"

	// KindProvider marks a provider lookup miss in the registry.
	KindProvider ErrorKind = "provider"

	// KindPersistence marks a disk write failure.
	KindPersistence ErrorKind = "persistence"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool           // convenience: returns true if Category == ErrorTransient
	StatusCode() int           // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is a categorized, kinded error with metadata for handling decisions.
//
// Error messages are redacted at construction by the packages that raise
// them; an Error never carries a credential verbatim.
type Error struct {
	Msg        string
	Kind       ErrorKind
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Field      string        // first failing field, set for validation errors
	Attempts   int           // attempts consumed, set for transport errors
	Cause      error         // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// Retryable returns true if the error is transient and can be retried.
func (e *Error) Retryable() bool {
	return e.Cat == ErrorTransient
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewValidationError creates an error for a request field that failed validation.
func NewValidationError(field, msg string) *Error {
	return &Error{
		Msg:   fmt.Sprintf("invalid %s: %s", field, msg),
		Kind:  KindValidation,
		Cat:   ErrorUserInput,
		Field: field,
	}
}

// NewTransportError creates a transient transport error that can be retried.
func NewTransportError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Kind:  KindTransport,
		Cat:   ErrorTransient,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewTransportErrorWithRetry creates a transient transport error with a
// server-suggested retry delay.
func NewTransportErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Msg:        msg,
		Kind:       KindTransport,
		Cat:        ErrorTransient,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewPermanentTransportError creates a transport error that should not be retried,
// such as a 4xx response other than 429.
func NewPermanentTransportError(msg string, statusCode int, cause error) *Error {
	cat := ErrorPermanent
	if statusCode == 400 || statusCode == 404 || statusCode == 422 {
		cat = ErrorUserInput
	}
	return &Error{
		Msg:   msg,
		Kind:  KindTransport,
		Cat:   cat,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewDecodeError creates an error for a response whose shape was not recognized.
func NewDecodeError(msg string, cause error) *Error {
	return &Error{
		Msg:   msg,
		Kind:  KindDecode,
		Cat:   ErrorPermanent,
		Cause: cause,
	}
}

// NewUnknownProviderError creates an error for a provider id missing from the registry.
func NewUnknownProviderError(id string) *Error {
	return &Error{
		Msg:   fmt.Sprintf("provider %q not found in configuration", id),
		Kind:  KindProvider,
		Cat:   ErrorUserInput,
		Field: "provider",
	}
}

// NewPersistenceError creates an error for a failed disk write.
func NewPersistenceError(msg string, cause error) *Error {
	return &Error{
		Msg:   msg,
		Kind:  KindPersistence,
		Cat:   ErrorPermanent,
		Cause: cause,
	}
}

// KindOf returns the pipeline stage that produced the error, or "" if the
// error does not carry a kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation returns true if the error was raised during request validation.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsTransport returns true if the error was raised by the HTTP transport.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsDecode returns true if the error was raised while decoding a response.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }

// IsUnknownProvider returns true if the error was a provider lookup miss.
func IsUnknownProvider(err error) bool { return KindOf(err) == KindProvider }

// IsPersistence returns true if the error was raised while writing output.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// IsTransient returns true if the error is categorized as transient.
// It checks if the error or any wrapped error implements CategorizedError.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// IsUserInput returns true if the error is categorized as a user input error.
func IsUserInput(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorUserInput
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// FieldOf returns the failing field name from a validation error, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// AttemptsOf returns the attempt count recorded on a transport error, or 0.
func AttemptsOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Attempts
	}
	return 0
}
