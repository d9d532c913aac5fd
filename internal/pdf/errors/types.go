package errors

import (
	stderrors "errors"
	"fmt"
)

// SignError describes a failure while detecting or signing a declaration
type SignError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Err     error     `json:"-"`
}

// ErrorType represents the categories of failure surfaced to callers
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidInput
	ErrorTypeSourceUnreadable
	ErrorTypeDetectionFailed
	ErrorTypeAssetMissing
	ErrorTypeRendererMissing
	ErrorTypeOutputNotWritable
	ErrorTypeWriteFailed
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *SignError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *SignError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a SignError of the same type.
// This lets callers match on a bare &SignError{Type: ...} sentinel.
func (e *SignError) Is(target error) bool {
	t, ok := target.(*SignError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == "" && t.Path == ""
}

// String returns the machine readable code of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeSourceUnreadable:
		return "SOURCE_UNREADABLE"
	case ErrorTypeDetectionFailed:
		return "DETECTION_FAILED"
	case ErrorTypeAssetMissing:
		return "ASSET_MISSING"
	case ErrorTypeRendererMissing:
		return "RENDERER_MISSING"
	case ErrorTypeOutputNotWritable:
		return "OUTPUT_NOT_WRITABLE"
	case ErrorTypeWriteFailed:
		return "WRITE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeInvalidInput, ErrorTypeDetectionFailed:
		return SeverityWarning
	case ErrorTypeSourceUnreadable, ErrorTypeOutputNotWritable:
		return SeverityError
	case ErrorTypeAssetMissing, ErrorTypeRendererMissing, ErrorTypeWriteFailed:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// New creates a SignError without an underlying cause
func New(errorType ErrorType, message string) *SignError {
	return &SignError{Type: errorType, Message: message}
}

// Newf creates a SignError with a formatted message
func Newf(errorType ErrorType, format string, args ...any) *SignError {
	return &SignError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as a SignError of the given type
func Wrap(errorType ErrorType, message string, err error) *SignError {
	return &SignError{Type: errorType, Message: message, Err: err}
}

// WithPath adds file path information to an existing SignError
func (e *SignError) WithPath(path string) *SignError {
	e.Path = path
	return e
}

// IsFatal returns true if this error must abort the whole operation
func (e *SignError) IsFatal() bool {
	return e.Type.GetSeverity() == SeverityFatal
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var se *SignError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is a SignError of type t anywhere in its chain
func IsType(err error, t ErrorType) bool {
	return stderrors.Is(err, &SignError{Type: t})
}
