package esg

import (
	"errors"
	"fmt"
)

// FormatError reports input text that cannot be read as an ESG score sheet.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return "format: " + e.Msg }

// ValidationError reports a record or payload that parsed but is unusable.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// ExternalServiceError reports a failed call to the store or narrative service.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// NewFormatError returns a FormatError with a formatted message.
func NewFormatError(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// NewExternalError wraps err as a failure of service.
func NewExternalError(service string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// IsFormat reports whether err wraps a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsExternal reports whether err wraps an ExternalServiceError.
func IsExternal(err error) bool {
	var xe *ExternalServiceError
	return errors.As(err, &xe)
}
