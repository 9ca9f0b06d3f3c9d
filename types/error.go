package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified gateway error code.
type ErrorCode string

// Gateway error codes
const (
	ErrMissingCredential     ErrorCode = "MISSING_CREDENTIAL"
	ErrInvalidCustomEndpoint ErrorCode = "INVALID_CUSTOM_ENDPOINT"
	ErrHTTPFailure           ErrorCode = "HTTP_FAILURE"
	ErrUnparsableResponse    ErrorCode = "UNPARSABLE_RESPONSE"
	ErrUpstreamTimeout       ErrorCode = "UPSTREAM_TIMEOUT"
	ErrTransport             ErrorCode = "TRANSPORT"
	ErrUnknownProvider       ErrorCode = "UNKNOWN_PROVIDER"
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"
)

// Session error codes
const (
	ErrConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrConfigNotFound       ErrorCode = "CONFIG_NOT_FOUND"
	ErrStorage              ErrorCode = "STORAGE"
)

// HTTP surface error codes
const (
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrRateLimited  ErrorCode = "RATE_LIMITED"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
// HTTPStatus and Body are only populated for ErrHTTPFailure.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Body       string    `json:"body,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Provider != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Provider, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// NewMissingCredentialError reports an empty or whitespace-only credential.
func NewMissingCredentialError(provider string) *Error {
	return NewError(ErrMissingCredential, "credential is empty").WithProvider(provider)
}

// NewInvalidCustomEndpointError reports an unusable custom endpoint URL.
func NewInvalidCustomEndpointError(endpoint string, cause error) *Error {
	return NewError(ErrInvalidCustomEndpoint, fmt.Sprintf("invalid custom endpoint %q", endpoint)).WithCause(cause)
}

// NewHTTPFailureError reports a non-2xx vendor response. body is kept verbatim.
func NewHTTPFailureError(provider string, status int, body string) *Error {
	return &Error{
		Code:       ErrHTTPFailure,
		Message:    fmt.Sprintf("unexpected status %d", status),
		HTTPStatus: status,
		Body:       body,
		Provider:   provider,
	}
}

// NewUnparsableResponseError reports a 2xx body that matched no known shape.
func NewUnparsableResponseError(provider, what string) *Error {
	return NewError(ErrUnparsableResponse, what).WithProvider(provider)
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
