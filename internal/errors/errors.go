// Package errors provides error types and handling for the analysis
// pipeline.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// InvalidInput represents malformed top-level input. This is the only
	// category surfaced to callers of the pipeline.
	InvalidInput
	// CacheIO represents result cache storage failures. Always recovered
	// locally: reads degrade to a miss, writes are logged and dropped.
	CacheIO
	// Recognition represents a failure inside one pattern recognition
	// section. Contained to that section.
	Recognition
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case InvalidInput:
		return "invalid_input"
	case CacheIO:
		return "cache_io"
	case Recognition:
		return "recognition"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this type abort the pipeline call.
func (t ErrorType) Fatal() bool {
	return t == InvalidInput
}

// AnalysisError represents a categorized pipeline error.
type AnalysisError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s: %s", e.Type.String(), e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new AnalysisError.
func New(errType ErrorType, operation, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewInvalidInput creates an invalid input error.
func NewInvalidInput(operation, message string) *AnalysisError {
	return New(InvalidInput, operation, message, nil)
}

// NewCacheIO creates a cache storage error.
func NewCacheIO(operation string, cause error) *AnalysisError {
	return New(CacheIO, operation, "cache storage failure", cause)
}

// NewRecognition creates a recognition section error.
func NewRecognition(section string, cause error) *AnalysisError {
	return New(Recognition, section, "recognition section failed", cause)
}

// IsInvalidInput checks if an error is an input rejection.
func IsInvalidInput(err error) bool {
	return GetErrorType(err) == InvalidInput
}

// IsCacheIO checks if an error is a cache storage failure.
func IsCacheIO(err error) bool {
	return GetErrorType(err) == CacheIO
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Type
	}
	return Unknown
}
