package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error condition in API responses
type ErrorCode string

const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"

	ErrCodeScopeNotFound        ErrorCode = "SCOPE_NOT_FOUND"
	ErrCodeClientNotFound       ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeApplianceNotFound    ErrorCode = "APPLIANCE_NOT_FOUND"
	ErrCodeInumExhausted        ErrorCode = "INUM_GENERATION_EXHAUSTED"
	ErrCodeImmutableAttribute   ErrorCode = "IMMUTABLE_ATTRIBUTE"
	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeClientDisabled     ErrorCode = "CLIENT_DISABLED"
	ErrCodeSecretExpired      ErrorCode = "CLIENT_SECRET_EXPIRED"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeValidationFailed:     http.StatusBadRequest,
	ErrCodeMissingRequired:      http.StatusBadRequest,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeInvalidCredentials:   http.StatusUnauthorized,
	ErrCodeSecretExpired:        http.StatusUnauthorized,
	ErrCodeTokenInvalid:         http.StatusUnauthorized,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeClientDisabled:       http.StatusForbidden,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeScopeNotFound:        http.StatusNotFound,
	ErrCodeClientNotFound:       http.StatusNotFound,
	ErrCodeOrganizationNotFound: http.StatusNotFound,
	ErrCodeApplianceNotFound:    http.StatusNotFound,
	ErrCodeAlreadyExists:        http.StatusConflict,
	ErrCodeImmutableAttribute:   http.StatusConflict,
	ErrCodeRateLimited:          http.StatusTooManyRequests,
	ErrCodeStoreUnavailable:     http.StatusServiceUnavailable,
	ErrCodeInumExhausted:        http.StatusServiceUnavailable,
}

// MapErrorCodeToHTTPStatus returns the status written for code. Unknown
// codes are internal errors.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries an API error code and a message safe to show to callers.
// The wrapped Err is logged, never returned.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail and returns e.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	return e.WithDetails(map[string]interface{}{key: value})
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// Response is the JSON body written for an Error
type Response struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts any error to a Response. Unstructured errors become
// internal errors without leaking their text.
func ToResponse(err error) (int, Response) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Response{Code: ErrCodeInternal, Message: "internal error"}
	}
	return e.HTTPStatusCode(), Response{Code: e.Code, Message: e.Message, Details: e.Details}
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err wraps an Error with code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first Error in err's chain, or
// ErrCodeInternal.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ValidationFailed reports invalid fields. details maps field names to
// their problems.
func ValidationFailed(details map[string]interface{}) *Error {
	return New(ErrCodeValidationFailed, "validation failed").WithDetails(details)
}
