package models

import "errors"

// ValidationError reports a violated domain invariant. Its message is shown
// to the user verbatim and the operation is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// ConfigurationError reports that a required external dependency is unusable,
// such as a missing API credential or renderer.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError returns a ConfigurationError with the given message.
func NewConfigurationError(msg string) *ConfigurationError {
	return &ConfigurationError{Message: msg}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
