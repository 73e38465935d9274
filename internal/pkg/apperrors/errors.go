package apperrors

import (
	"errors"
	"fmt"
)

// Resource errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrUnauthorized       = errors.New("authentication required")
)

// Authorization errors
var (
	ErrPermissionDenied = errors.New("permission denied")
)

// ErrRateLimited is returned when a client exceeds its request budget
var ErrRateLimited = errors.New("rate limit exceeded")

// Validation errors
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Domain errors wrap one of the kinds above so handlers can map them by kind
var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrResourceNotFound)
	ErrEmailAlreadyExists = fmt.Errorf("email already exists: %w", ErrConflict)

	ErrModuleNotFound       = fmt.Errorf("module %w", ErrResourceNotFound)
	ErrModuleCodeExists     = fmt.Errorf("module code already exists: %w", ErrConflict)
	ErrCompetencyNotFound   = fmt.Errorf("competency %w", ErrResourceNotFound)
	ErrCompetencyCodeExists = fmt.Errorf("competency code already exists: %w", ErrConflict)
	ErrInvalidArea          = fmt.Errorf("invalid competency area: %w", ErrBadRequest)
)

// NewConflictError creates a conflict error with a user facing message
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewForbiddenError creates a permission error with a user facing message
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewBadRequestError creates a bad request error with a user facing message
func NewBadRequestError(message string) error {
	return &CustomError{Err: ErrBadRequest, Message: message}
}

// NewUnauthorizedError creates an authentication error with a user facing message
func NewUnauthorizedError(message string) error {
	return &CustomError{Err: ErrUnauthorized, Message: message}
}

// NewValidationError creates a validation error bound to one request field
func NewValidationError(field, message string) error {
	return &CustomError{Err: ErrValidationFailed, Message: message, Field: field}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Field   string
	Details map[string]interface{}
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError wraps err with a user facing message
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

// WithDetails attaches context for the response body
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// UserMessage returns the message of the outermost CustomError in the chain, if any
func UserMessage(err error) (string, bool) {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message, true
	}
	return "", false
}
