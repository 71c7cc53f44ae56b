package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures for the transport layer.
type ErrorKind int

const (
	// KindValidation marks caller input that failed a precondition.
	KindValidation ErrorKind = iota + 1
	// KindInternal marks store or signing failures.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by MediaService.
type Error struct {
	Kind         ErrorKind
	Message      string
	Details      string
	ValidOptions []string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a KindValidation error.
func Validation(message string, validOptions ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, ValidOptions: validOptions}
}

// Internal returns a KindInternal error carrying err's text as details.
func Internal(message string, err error) *Error {
	e := &Error{Kind: KindInternal, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// AsError extracts a service Error from err. Any other error becomes KindInternal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Internal("Internal server error", err)
}
