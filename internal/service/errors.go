package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Gateway matches exactly one of these
// with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("resource not found")
	ErrRateLimited   = errors.New("rate limited by upstream")
	ErrNotConfigured = errors.New("gateway not configured")
	ErrUpstream      = errors.New("upstream failure")
)

// RateLimitMessage is returned to callers whenever Lichess throttles a request.
const RateLimitMessage = "Rate limit exceeded. Please try again later."

// Error is a classified gateway failure. Message is safe to show to callers.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func notFoundError(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func rateLimitError(cause error) *Error {
	return &Error{Kind: ErrRateLimited, Message: RateLimitMessage, Err: cause}
}

func configError(msg string) *Error {
	return &Error{Kind: ErrNotConfigured, Message: msg}
}

func upstreamError(msg string, cause error) *Error {
	return &Error{Kind: ErrUpstream, Message: msg, Err: cause}
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}
