package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes processing failures. Callers map codes onto their
// own transport (HTTP status, CLI exit code).
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the caller failed the bearer check.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvalidAction indicates a malformed action or unknown id.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// ErrCodeUpstreamRead indicates the store could not load the document.
	ErrCodeUpstreamRead ErrorCode = "UPSTREAM_READ"

	// ErrCodeUpstreamWrite indicates the conditional save failed, version
	// conflicts included.
	ErrCodeUpstreamWrite ErrorCode = "UPSTREAM_WRITE"

	// ErrCodeInternal covers everything else.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is returned by Apply and Processor.Process.
//
// Message is safe to show to the caller. Err carries the underlying cause
// and is reachable through errors.Is / errors.As.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func invalidAction(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidAction, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsInvalidAction returns true if the error rejects the request itself.
// Uses errors.As to handle wrapped errors.
func IsInvalidAction(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidAction
}

// IsUpstream returns true if the error came from the document store.
func IsUpstream(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == ErrCodeUpstreamRead || e.Code == ErrCodeUpstreamWrite
}
