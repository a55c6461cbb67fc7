// Package fault holds the error categories shared by the backend, its HTTP
// surface and the wizard: validation failures caught before any call is made,
// upstream failures from external providers, and responses that could not be
// decoded.
package fault

import (
	"errors"
	"fmt"
)

// ValidationError reports a precondition that failed before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError reports an external HTTP call that failed or returned an error status.
// StatusCode is zero when the service was unreachable.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Unreachable wraps a transport failure talking to service.
func Unreachable(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

// DecodeError reports an upstream response that did not have the expected shape.
type DecodeError struct {
	Service string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Service, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err carries an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
