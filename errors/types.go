package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Process collection errors
	ErrCodePlatformUnsupported ErrorCode = "PLATFORM_UNSUPPORTED"
	ErrCodeMissingDependency   ErrorCode = "MISSING_DEPENDENCY"
	ErrCodeCollectionFailed    ErrorCode = "COLLECTION_FAILED"

	// Rule and recording errors
	ErrCodeInvalidPattern    ErrorCode = "INVALID_PATTERN"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"

	// General errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// ProcTrackError represents a structured error with context
type ProcTrackError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ProcTrackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ProcTrackError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *ProcTrackError) WithDetail(key string, value interface{}) *ProcTrackError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *ProcTrackError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new ProcTrackError
func New(code ErrorCode, message string) *ProcTrackError {
	return &ProcTrackError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a ProcTrackError
func Wrap(err error, code ErrorCode, message string) *ProcTrackError {
	return &ProcTrackError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error, or any error it wraps, carries the given code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	ptErr, ok := err.(*ProcTrackError)
	if ok && ptErr.Code == code {
		return true
	}

	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return Is(u.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	}
	return false
}

// GetCode extracts the outermost error code from an error chain
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	ptErr, ok := err.(*ProcTrackError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return ptErr.Code
}

// IsFatal reports whether err means process tracking cannot continue at all.
// Collection, pattern and persistence errors are recoverable per cycle.
func IsFatal(err error) bool {
	return Is(err, ErrCodePlatformUnsupported) || Is(err, ErrCodeMissingDependency)
}
