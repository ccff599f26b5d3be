package errors

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeSessionInvalid ErrorCode = "SESSION_INVALID"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Resolution
	ErrCodeDeviceNotFound  ErrorCode = "DEVICE_NOT_FOUND"
	ErrCodeSwitchNotFound  ErrorCode = "SWITCH_NOT_FOUND"
	ErrCodeAmbiguousDevice ErrorCode = "AMBIGUOUS_DEVICE"
	ErrCodeAmbiguousSwitch ErrorCode = "AMBIGUOUS_SWITCH"

	// Execution
	ErrCodeDeviceOffline     ErrorCode = "DEVICE_OFFLINE"
	ErrCodeActionUnsupported ErrorCode = "ACTION_UNSUPPORTED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// Kind groups error codes into the classes the request pipeline branches on.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindValidation  Kind = "validation"
	KindResolution  Kind = "resolution"
	KindExecution   Kind = "execution"
	KindInternal    Kind = "internal"
)

// Kind returns the class of the error code. Unknown codes are internal.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrCodeUnauthorized, ErrCodeForbidden, ErrCodeSessionInvalid:
		return KindAuth
	case ErrCodeRateLimitExceeded:
		return KindRateLimited
	case ErrCodeValidation, ErrCodeMissingRequired, ErrCodePayloadTooLarge:
		return KindValidation
	case ErrCodeDeviceNotFound, ErrCodeSwitchNotFound, ErrCodeAmbiguousDevice, ErrCodeAmbiguousSwitch:
		return KindResolution
	case ErrCodeDeviceOffline, ErrCodeActionUnsupported:
		return KindExecution
	default:
		return KindInternal
	}
}

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// Kind returns the class of the error
func (e *AppError) Kind() Kind {
	return e.Code.Kind()
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func SessionInvalid() *AppError {
	return New(ErrCodeSessionInvalid, "Voice session is invalid or expired")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func PayloadTooLarge() *AppError {
	return New(ErrCodePayloadTooLarge, "Request body too large")
}

// RetryAfterDetails is attached to rate limit errors
type RetryAfterDetails struct {
	RetryAfter int `json:"retryAfter"`
}

// RateLimitExceeded reports a denied admission. retryAfter is rounded up to
// whole seconds and never below one.
func RateLimitExceeded(retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded").
		WithDetails(RetryAfterDetails{RetryAfter: RetryAfterSeconds(retryAfter)})
}

// RetryAfterSeconds converts a duration into the Retry-After header value.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func DeviceNotFound(hint string) *AppError {
	return New(ErrCodeDeviceNotFound, fmt.Sprintf("No device matches %q", hint))
}

func SwitchNotFound(hint, device string) *AppError {
	return New(ErrCodeSwitchNotFound, fmt.Sprintf("No switch matches %q on %s", hint, device))
}

func AmbiguousDevice(hint string, candidates []string) *AppError {
	return New(ErrCodeAmbiguousDevice, fmt.Sprintf("%q matches several devices: %s", hint, strings.Join(candidates, ", "))).
		WithDetails(map[string]any{"candidates": candidates})
}

func AmbiguousSwitch(device string, candidates []string) *AppError {
	return New(ErrCodeAmbiguousSwitch, fmt.Sprintf("%s has several matching switches: %s", device, strings.Join(candidates, ", "))).
		WithDetails(map[string]any{"candidates": candidates})
}

func DeviceOffline(device string, cause error) *AppError {
	return Wrap(ErrCodeDeviceOffline, fmt.Sprintf("%s is not responding", device), cause)
}

func ActionUnsupported(action, switchType string) *AppError {
	if action == "" {
		return New(ErrCodeActionUnsupported, "Could not determine the action to perform")
	}
	return New(ErrCodeActionUnsupported, fmt.Sprintf("Action %q is not supported by %s switches", action, switchType))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// KindOf returns the error class, treating foreign errors as internal
func KindOf(err error) Kind {
	return GetCode(err).Kind()
}
