package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("dependency unavailable")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")
)

// Error category codes carried on every externally visible failure.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeTransport  = "TRANSPORT_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ConfigError(message string) error {
	return NewAppError(CodeConfig, message, ErrInvalidInput)
}

func TransportError(message string, cause error) error {
	return NewAppError(CodeTransport, message, errors.Join(ErrUnavailable, cause))
}

func ValidationError(message string) error {
	return NewAppError(CodeValidation, message, ErrValidation)
}

func ValidationErrorf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

func NotFoundError(message string) error {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func NotFoundErrorf(format string, args ...any) error {
	return NotFoundError(fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the category code of err, or CodeInternal when err carries none.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
