// Package errors provides structured error types for cargo-no-std.
//
// Every failure the tool can hit is tagged with a [Code] so callers can
// decide how far it propagates:
//   - GRAPH_LOOKUP_FAILURE, METADATA_FAILURE, BUILD_INVOCATION_FAILURE
//     abort the whole run
//   - SOURCE_PARSE_FAILURE is folded into a single package's verdict
//   - ARCHIVE_PARSE_FAILURE, OBJECT_PARSE_FAILURE and
//     DEBUG_INFO_DECODE_FAILURE make one artifact's verification inconclusive
//
// # Usage
//
//	err := errors.New(errors.ErrCodeGraphLookup, "package %q not found", name)
//	if errors.Is(err, errors.ErrCodeGraphLookup) {
//	    // abort
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeArchiveParse, origErr, "read %s", path)
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
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidFeature Code = "INVALID_FEATURE"

	// Setup errors, fatal to the run
	ErrCodeGraphLookup     Code = "GRAPH_LOOKUP_FAILURE"
	ErrCodeMetadata        Code = "METADATA_FAILURE"
	ErrCodeBuildInvocation Code = "BUILD_INVOCATION_FAILURE"

	// Per-package errors
	ErrCodeSourceParse Code = "SOURCE_PARSE_FAILURE"

	// Per-artifact errors
	ErrCodeArchiveParse    Code = "ARCHIVE_PARSE_FAILURE"
	ErrCodeObjectParse     Code = "OBJECT_PARSE_FAILURE"
	ErrCodeDebugInfoDecode Code = "DEBUG_INFO_DECODE_FAILURE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message (and cause) without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err must abort the whole run rather than degrade a
// single package or artifact verdict.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeSourceParse, ErrCodeArchiveParse, ErrCodeObjectParse, ErrCodeDebugInfoDecode:
		return false
	}
	return err != nil
}

// IsInconclusive reports whether err came from decoding a build artifact.
// Such failures make one artifact's verdict inconclusive.
func IsInconclusive(err error) bool {
	switch GetCode(err) {
	case ErrCodeArchiveParse, ErrCodeObjectParse, ErrCodeDebugInfoDecode:
		return true
	}
	return false
}
