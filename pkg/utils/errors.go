package utils

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrGrammarViolation means a response could not be understood at all.
var ErrGrammarViolation = errors.New("could not understand the response")

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// ErrorCategory represents the category of an error
type ErrorCategory int

const (
	CategorySystem ErrorCategory = iota
	CategoryFileSystem
	CategoryConfiguration
	CategoryValidation
	CategoryStorage
	CategoryUser
)

// ErrorContext provides additional context for errors
type ErrorContext struct {
	Operation string
	Resource  string
}

// StructuredError is an error with a stable code for the command line.
type StructuredError struct {
	Code       string
	Message    string
	Severity   ErrorSeverity
	Category   ErrorCategory
	Context    *ErrorContext
	RootCause  error
	StackTrace string
	Timestamp  int64
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.RootCause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.RootCause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for compatibility with errors.Is and errors.As
func (e *StructuredError) Unwrap() error {
	return e.RootCause
}

// NewStructuredError creates a new structured error
func NewStructuredError(code, message string, severity ErrorSeverity, category ErrorCategory, rootCause error) *StructuredError {
	err := &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		RootCause: rootCause,
		Timestamp: time.Now().Unix(),
	}
	if severity >= SeverityHigh {
		err.StackTrace = captureStackTrace()
	}
	return err
}

// NewFileSystemError creates a filesystem-related error
func NewFileSystemError(operation, path string, rootCause error) *StructuredError {
	return NewStructuredError(
		"FS_ERROR",
		fmt.Sprintf("Filesystem error during %s", operation),
		SeverityMedium,
		CategoryFileSystem,
		rootCause,
	).WithContext(&ErrorContext{Operation: operation, Resource: path})
}

// NewConfigurationError creates a configuration-related error
func NewConfigurationError(key string, rootCause error) *StructuredError {
	return NewStructuredError(
		"CFG_ERROR",
		fmt.Sprintf("Configuration error for %s", key),
		SeverityMedium,
		CategoryConfiguration,
		rootCause,
	).WithContext(&ErrorContext{Resource: key})
}

// NewValidationError creates a validation error
func NewValidationError(field, reason string) *StructuredError {
	return NewStructuredError(
		"VAL_ERROR",
		fmt.Sprintf("Validation failed for %s: %s", field, reason),
		SeverityLow,
		CategoryValidation,
		nil,
	).WithContext(&ErrorContext{Resource: field})
}

// NewStorageError wraps a page store failure.
func NewStorageError(operation, pageID string, rootCause error) *StructuredError {
	return NewStructuredError(
		"STORE_ERROR",
		fmt.Sprintf("Page store error during %s", operation),
		SeverityHigh,
		CategoryStorage,
		rootCause,
	).WithContext(&ErrorContext{Operation: operation, Resource: pageID})
}

// NewUserError creates a user-facing error
func NewUserError(message string, rootCause error) *StructuredError {
	return NewStructuredError("USER_ERROR", message, SeverityLow, CategoryUser, rootCause)
}

// WithContext adds context to the error
func (e *StructuredError) WithContext(ctx *ErrorContext) *StructuredError {
	e.Context = ctx
	return e
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// IsValidationError checks if an error is validation-related
func IsValidationError(err error) bool {
	var se *StructuredError
	return errors.As(err, &se) && se.Category == CategoryValidation
}

// FormatError formats an error for display
func FormatError(err error) string {
	var se *StructuredError
	if !errors.As(err, &se) {
		return err.Error()
	}

	parts := []string{fmt.Sprintf("Error [%s]: %s", se.Code, se.Message)}
	if se.Context != nil {
		if se.Context.Operation != "" {
			parts = append(parts, fmt.Sprintf("Operation: %s", se.Context.Operation))
		}
		if se.Context.Resource != "" {
			parts = append(parts, fmt.Sprintf("Resource: %s", se.Context.Resource))
		}
	}
	if se.RootCause != nil {
		parts = append(parts, fmt.Sprintf("Root Cause: %v", se.RootCause))
	}
	return strings.Join(parts, " | ")
}
