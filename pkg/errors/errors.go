// Package errors provides structured error types for cardforge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (malformed templates, cards, names)
//   - *_FAILED: Fatal failures of a render, pack or generation operation
//   - NOT_FOUND: Resource not found
//   - BUSY: A second concurrent generation job was rejected
//   - INTERNAL_*: Unexpected internal errors
//
// # Typed Errors
//
// Some failures carry structured detail beyond a message. [ValidationError]
// names the offending field, [RenderError] names the missing or broken
// resource, and [PackingError] names the index of the offending image. All of
// them report a [Code], so [Is] and [GetCode] work uniformly:
//
//	err := errors.Packing(3, cause)
//	if errors.Is(err, errors.ErrCodePacking) {
//	    // Handle packing failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeGeneration, origErr, "unit %d", i)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidTemplate Code = "INVALID_TEMPLATE"
	ErrCodeInvalidCard     Code = "INVALID_CARD"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Operation failures
	ErrCodeRender     Code = "RENDER_FAILED"
	ErrCodePacking    Code = "PACKING_FAILED"
	ErrCodeGeneration Code = "GENERATION_FAILED"
	ErrCodeBusy       Code = "BUSY"
	ErrCodeTimeout    Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// ErrBusy is returned when a generation job is started while another one is running.
var ErrBusy = New(ErrCodeBusy, "a generation job is already running")

// coder is implemented by typed errors that report a code without embedding *Error.
type coder interface {
	Code() Code
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or typed error with a matching code.
// The outermost coded error wins.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error and *ValidationError types, returns the message without the
// code prefix. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	return err.Error()
}

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Kind    Code   // ErrCodeInvalidTemplate, ErrCodeInvalidCard, ...
	Field   string // Dotted path of the offending field, e.g. "items.title.font.size"
	Message string
}

// Invalid creates a ValidationError for the given field.
func Invalid(kind Code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code(), e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code(), e.Field, e.Message)
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() Code {
	if e.Kind == "" {
		return ErrCodeInvalidInput
	}
	return e.Kind
}

// RenderError reports a required resource that is missing or broken.
// It aborts the render of one card only.
type RenderError struct {
	Resource string // Path or name of the offending resource
	Cause    error
}

// Render creates a RenderError for resource.
func Render(resource string, cause error) *RenderError {
	return &RenderError{Resource: resource, Cause: cause}
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCodeRender, e.Resource, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrCodeRender, e.Resource)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *RenderError) Code() Code { return ErrCodeRender }

// PackingError aborts a whole pack operation.
// Index is the offending source position, or -1 when the failure is not item specific.
type PackingError struct {
	Index int
	Cause error
}

// Packing creates a PackingError for the source at index.
func Packing(index int, cause error) *PackingError {
	return &PackingError{Index: index, Cause: cause}
}

// Error implements the error interface.
func (e *PackingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", ErrCodePacking, e.Cause)
	}
	return fmt.Sprintf("%s: image %d: %v", ErrCodePacking, e.Index, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *PackingError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *PackingError) Code() Code { return ErrCodePacking }
