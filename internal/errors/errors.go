package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig = "CONFIG"
	ErrSSH    = "SSH"
	ErrExec   = "EXEC"
	ErrAgent  = "AGENT"
	ErrStore  = "STORE"
	ErrInput  = "INPUT"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Short returns the message and cause on a single line, for places where the
// multi-line rendering would be noisy (log lines, result payloads).
func (e *Error) Short() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var nwErr *Error
	if errors.As(err, &nwErr) {
		return nwErr.Code == code
	}
	return false
}

// Brief returns a one-line description of any error. Structured errors use
// Short; everything else falls back to Error().
func Brief(err error) string {
	if err == nil {
		return ""
	}
	var nwErr *Error
	if errors.As(err, &nwErr) {
		return nwErr.Short()
	}
	return err.Error()
}

// ExitError carries a remote command's non-zero exit status up to main,
// which exits with the same code without printing anything further.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError for code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
