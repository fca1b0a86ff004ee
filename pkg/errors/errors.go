package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Store and persistence errors
	ErrorCodeInvalidIdentifier   ErrorCode = "INVALID_IDENTIFIER"
	ErrorCodeDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"
	ErrorCodeUniqueness          ErrorCode = "UNIQUENESS_VIOLATION"
	ErrorCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrorCodeMalformedData       ErrorCode = "MALFORMED_DATA"
	ErrorCodeDecryptionFailed    ErrorCode = "DECRYPTION_FAILED"
	ErrorCodeIO                  ErrorCode = "IO_FAILURE"

	// Request errors
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrorCodeInvalidJSON  ErrorCode = "INVALID_JSON"
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeConflict     ErrorCode = "CONFLICT"

	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Matching is by code, so any AppError carrying
// the same code matches regardless of message.
var (
	ErrInvalidIdentifier   = &AppError{Code: ErrorCodeInvalidIdentifier}
	ErrDuplicateIdentifier = &AppError{Code: ErrorCodeDuplicateIdentifier}
	ErrUniqueness          = &AppError{Code: ErrorCodeUniqueness}
	ErrValidationFailed    = &AppError{Code: ErrorCodeValidationFailed}
	ErrMalformedData       = &AppError{Code: ErrorCodeMalformedData}
	ErrDecryptionFailed    = &AppError{Code: ErrorCodeDecryptionFailed}
	ErrIO                  = &AppError{Code: ErrorCodeIO}
	ErrNotFound            = &AppError{Code: ErrorCodeNotFound}
	ErrBadRequest          = &AppError{Code: ErrorCodeBadRequest}
	ErrConflict            = &AppError{Code: ErrorCodeConflict}
	ErrUnauthorized        = &AppError{Code: ErrorCodeUnauthorized}
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Violations []string               `json:"violations,omitempty"`
	Cause      error                  `json:"-"`
	Timestamp  time.Time              `json:"timestamp"`
	RequestID  string                 `json:"request_id,omitempty"`
	StackTrace string                 `json:"-"` // Don't expose in JSON
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	for _, v := range e.Violations {
		b.WriteString("\n- ")
		b.WriteString(v)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToJSON converts the error to JSON for API responses
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"error":      e.Message,
		"code":       e.Code,
		"details":    e.Details,
		"violations": e.Violations,
		"timestamp":  e.Timestamp,
		"request_id": e.RequestID,
	})
	return data
}

// GetHTTPStatus returns the appropriate HTTP status code for the error
func (e *AppError) GetHTTPStatus() int {
	switch e.Code {
	case ErrorCodeBadRequest, ErrorCodeInvalidJSON, ErrorCodeMalformedData, ErrorCodeInvalidIdentifier:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeUniqueness, ErrorCodeDuplicateIdentifier, ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrorCodeUnauthorized, ErrorCodeDecryptionFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Timestamp:  time.Now(),
		StackTrace: getStackTrace(),
	}
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	err := NewAppError(code, message)
	err.Cause = cause
	return err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID adds a request ID to the error
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Predefined error constructors

// InvalidIdentifier reports a non-positive identifier on the restore path.
func InvalidIdentifier(entity string, id int) *AppError {
	return NewAppError(ErrorCodeInvalidIdentifier, fmt.Sprintf("invalid %s id: %d", entity, id)).
		WithDetail("id", id)
}

// DuplicateIdentifier reports an identifier that is already taken on the restore path.
func DuplicateIdentifier(entity string, id int) *AppError {
	return NewAppError(ErrorCodeDuplicateIdentifier, fmt.Sprintf("duplicate %s id: %d", entity, id)).
		WithDetail("id", id)
}

// UniquenessViolation reports a field value already held by another record.
func UniquenessViolation(field, value string) *AppError {
	return NewAppError(ErrorCodeUniqueness, fmt.Sprintf("%s already exists: %s", field, value)).
		WithDetail("field", field)
}

// ValidationFailed carries every violation found by a full sweep.
func ValidationFailed(violations []string) *AppError {
	err := NewAppError(ErrorCodeValidationFailed, "database validation failed")
	err.Violations = append([]string(nil), violations...)
	return err
}

// MalformedData reports an input buffer that cannot be trusted.
func MalformedData(message string) *AppError {
	return NewAppError(ErrorCodeMalformedData, message)
}

// DecryptionFailed reports a wrong password or corrupted ciphertext.
func DecryptionFailed(cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeDecryptionFailed, "decryption failed (wrong password or corrupted file)", cause)
}

// IOFailure wraps a file-system error.
func IOFailure(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeIO, operation, cause)
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *AppError {
	return NewAppError(ErrorCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequestError creates a bad request error
func BadRequestError(message string) *AppError {
	return NewAppError(ErrorCodeBadRequest, message)
}

// ConflictError reports a request that clashes with the current state.
func ConflictError(message string) *AppError {
	return NewAppError(ErrorCodeConflict, message)
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrorCodeUnauthorized, message)
}

// InvalidJSONError creates an invalid JSON error
func InvalidJSONError(cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInvalidJSON, "Invalid JSON format", cause)
}

// InternalError creates an internal server error
func InternalError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInternal, message, cause)
}

// Error handling utilities

// AsAppError converts an error to AppError if possible, following wrapped causes.
func AsAppError(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// WrapError wraps a generic error as an internal error
func WrapError(err error, message string) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewAppErrorWithCause(ErrorCodeInternal, message, err)
}
