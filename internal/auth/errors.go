package auth

import "errors"

// Code classifies authentication failures.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeEmailUnconfirmed   Code = "email_not_confirmed"
	CodeRateLimited        Code = "rate_limited"
	CodeNetworkUnavailable Code = "network_unavailable"
	CodeBusy               Code = "busy"
	CodeSyncFailed         Code = "sync_failed"
	CodeProviderError      Code = "provider_error"
)

// Error is a classified authentication failure.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// NewError constructs an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError attaches a cause to a classified error.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the classification of err, or ProviderError when err
// carries none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeProviderError
}

// Common sentinel instances for failures that carry no upstream detail.
var (
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "email or password is incorrect")
	ErrBusy               = NewError(CodeBusy, "another login attempt is in progress")
)
