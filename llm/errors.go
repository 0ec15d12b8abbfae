package llm

import (
	"errors"
)

// Error represents a provider-neutral LLM error.
type Error struct {
	Kind        ErrorKind
	Message     string
	Retryable   bool
	StatusCode  int
	ProviderErr error // Original provider-specific error
}

// ErrorKind represents the category of error.
type ErrorKind string

const (
	// ErrorKindValidation covers bad caller input (empty audio, missing
	// prompt). Never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindConfiguration indicates a deployment problem such as a
	// missing API key, as opposed to a bad request. Never retried.
	ErrorKindConfiguration ErrorKind = "configuration"
	// ErrorKindContentFilter is a provider content-policy rejection.
	// Retrying would not change the outcome.
	ErrorKindContentFilter ErrorKind = "content_filter"
	// ErrorKindProtocol is a mismatch between orchestrator assumptions
	// and provider behavior (unexpected finish reason, no matching tool
	// call, run in the wrong state).
	ErrorKindProtocol ErrorKind = "protocol"
	// ErrorKindTransient covers network failures, timeouts, rate limits
	// and 5xx-equivalent provider errors.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindDecode is a tool-call argument payload that did not match
	// the expected schema.
	ErrorKindDecode ErrorKind = "decode"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// KindOf returns the kind of an error, or ErrorKindTransient for errors
// that did not come from this package. Unclassified errors are treated
// as transient so that plain network errors stay retryable.
func KindOf(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ErrorKindTransient
}

// IsRetryableError checks if an error may be retried. Errors not created
// by this package are considered retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return true
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return KindOf(err) == ErrorKindValidation
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind == ErrorKindConfiguration
	}
	return false
}

// IsContentFilterError checks if an error is a content-filter rejection.
func IsContentFilterError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind == ErrorKindContentFilter
	}
	return false
}

// IsProtocolError checks if an error is a protocol violation.
func IsProtocolError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind == ErrorKindProtocol
	}
	return false
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Kind:      ErrorKindValidation,
		Message:   message,
		Retryable: false,
	}
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{
		Kind:      ErrorKindConfiguration,
		Message:   message,
		Retryable: false,
	}
}

// NewContentFilterError creates a new content-filter error.
func NewContentFilterError(message string) *Error {
	return &Error{
		Kind:      ErrorKindContentFilter,
		Message:   message,
		Retryable: false,
	}
}

// NewProtocolError creates a new protocol-violation error.
func NewProtocolError(message string) *Error {
	return &Error{
		Kind:      ErrorKindProtocol,
		Message:   message,
		Retryable: false,
	}
}

// NewTransientError creates a new transient provider error.
func NewTransientError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindTransient,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewDecodeError creates a new decode error.
func NewDecodeError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindDecode,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}
