// Package errors provides structured error handling for metasnap with typed
// categories, key/value context and captured stack traces.
//
// Every pipeline stage reports its failure through an *Error whose Type names
// the failure class (connection, timeout, http_status, decode, shape,
// serialization, write). The stage logs the error, including its stack, and
// the orchestrator only looks at whether a stage produced a result.
//
// # Basic Usage
//
//	err := errors.New(errors.ErrorTypeShape, "document is not a JSON object").
//	    WithDetail("kind", "array")
//
//	if err := f.Close(); err != nil {
//	    return errors.Wrap(err, errors.ErrorTypeWrite, "failed to close output file").
//	        WithDetail("path", path)
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents connection errors (DNS, refused, unreachable)
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeHTTPStatus represents a non-success HTTP response
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeDecode represents a malformed JSON body
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeShape represents a document whose top-level value is not an object
	ErrorTypeShape ErrorType = "shape"
	// ErrorTypeSerialization represents a value that could not be rendered as text
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeWrite represents I/O or encoding failures while persisting output
	ErrorTypeWrite ErrorType = "write"
	// ErrorTypePublish represents failures uploading output to object storage
	ErrorTypePublish ErrorType = "publish"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// StackTrace renders the captured frames one per line, innermost first.
func (e *Error) StackTrace() string {
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return b.String()
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
// If err already carries a stack, that stack is preserved. Returns nil for a nil err.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable reports whether the error belongs to a transient category.
// metasnap never retries on its own; callers wrapping it in a scheduler can.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	case ErrorTypeHTTPStatus:
		code, _ := e.Details["status_code"].(int)
		return code == 429 || code >= 500
	default:
		return false
	}
}

// IsType checks if the outermost structured error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost structured error, or
// ErrorTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
