// Package errors provides severity-aware structured errors shared by the
// simulation engines and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error codes
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidState     = "INVALID_STATE"
	CodeConflict         = "CONFLICT"
	CodeResolutionFailed = "RESOLUTION_FAILED"
	CodeInternal         = "INTERNAL"
)

// Error is a structured error with a stable code and optional subject context.
type Error struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Subject     string   `json:"subject,omitempty"` // resource or proposal id
	Recoverable bool     `json:"recoverable"`

	cause error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Severity, e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// CodeOf extracts the structured code from err, or CodeInternal for plain errors.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given structured code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// NewValidation creates a caller-facing validation failure.
func NewValidation(format string, args ...any) *Error {
	return &Error{
		Code:     CodeValidation,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	}
}

// NewNotFound creates a not-found failure for the given subject.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found", kind),
		Severity: SeverityWarning,
		Subject:  id,
	}
}

// NewInvalidState creates a state-transition failure that names the current
// (unexpected) status so the caller can refresh its view.
func NewInvalidState(id, current, wanted string) *Error {
	return &Error{
		Code:     CodeInvalidState,
		Message:  fmt.Sprintf("cannot %s: proposal status is %s", wanted, current),
		Severity: SeverityWarning,
		Subject:  id,
	}
}

// NewConflict creates a concurrent-modification failure for a lost
// compare-and-swap race.
func NewConflict(id string) *Error {
	return &Error{
		Code:     CodeConflict,
		Message:  "proposal was modified concurrently",
		Severity: SeverityWarning,
		Subject:  id,
	}
}

// NewResolutionFailed wraps a per-resource lookup failure. These are absorbed
// by the coordinator and never reach the API boundary.
func NewResolutionFailed(resourceID string, cause error) *Error {
	return &Error{
		Code:        CodeResolutionFailed,
		Message:     fmt.Sprintf("resource resolution failed: %v", cause),
		Severity:    SeverityWarning,
		Subject:     resourceID,
		Recoverable: true,
		cause:       cause,
	}
}
