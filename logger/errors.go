package logger

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeAPI      ErrorType = "API_ERROR"
	ErrorTypeAuth     ErrorType = "AUTH_ERROR"
	ErrorTypeConfig   ErrorType = "CONFIG_ERROR"
	ErrorTypeData     ErrorType = "DATA_ERROR"
	ErrorTypeStorage  ErrorType = "STORAGE_ERROR"
	ErrorTypeInternal ErrorType = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Cause    error
	Metadata map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// WrapError wraps an existing error with additional context
func WrapError(err error, errorType ErrorType, message string) error {
	if err == nil {
		return nil
	}
	return NewAppError(errorType, message, err)
}

// IsErrorType checks if an error (or anything it wraps) is of a
// specific type.
func IsErrorType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}
