package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind classifies every failure the onboarding workflow can surface.
type ErrorKind string

const (
	KindTransientUpstream  ErrorKind = "TransientUpstream"
	KindIdentityExtraction ErrorKind = "IdentityExtractionError"
	KindUnmatchedIdentity  ErrorKind = "UnmatchedIdentity"
	KindUserAlreadyExists  ErrorKind = "UserAlreadyExists"
	KindAddressInvalid     ErrorKind = "AddressInvalid"
	KindInfrastructure     ErrorKind = "InfrastructureError"
)

const (
	MsgIdentityExtraction = "Cannot extract information from the provided ID card"
	MsgUserAlreadyExists  = "A user with the same firstname and lastname already exists"
	MsgAddressInvalid     = "Provided address could not be validated"
	MsgInfrastructure     = "Internal error, please retry later"
)

// StandardError is what collaborators and task handlers return. Retryable
// marks transient failures the task retry loop may absorb.
type StandardError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Kind, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func NewTransientError(service string, err error) *StandardError {
	return &StandardError{
		Kind:      KindTransientUpstream,
		Message:   fmt.Sprintf("%s temporarily unavailable", service),
		Details:   detailsOf(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(task string, err error) *StandardError {
	return &StandardError{
		Kind:      KindTransientUpstream,
		Message:   fmt.Sprintf("%s timed out", task),
		Details:   detailsOf(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewIdentityExtractionError(details string, err error) *StandardError {
	return &StandardError{
		Kind:      KindIdentityExtraction,
		Message:   MsgIdentityExtraction,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUnmatchedIdentityError names the first declared field that disagrees
// with the document.
func NewUnmatchedIdentityError(field string) *StandardError {
	return &StandardError{
		Kind:      KindUnmatchedIdentity,
		Message:   fmt.Sprintf("Provided %s does not match with ID card %s", field, field),
		Details:   field,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUserAlreadyExistsError(firstname, lastname string) *StandardError {
	return &StandardError{
		Kind:      KindUserAlreadyExists,
		Message:   MsgUserAlreadyExists,
		Details:   fmt.Sprintf("firstname=%s lastname=%s", firstname, lastname),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAddressInvalidError(details string) *StandardError {
	return &StandardError{
		Kind:      KindAddressInvalid,
		Message:   MsgAddressInvalid,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInfrastructureError(service string, err error) *StandardError {
	return &StandardError{
		Kind:      KindInfrastructure,
		Message:   fmt.Sprintf("%s failure", service),
		Details:   detailsOf(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// IsRetryable reports whether err is transient. A deadline hit on an attempt
// counts as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the kind carried by err, or "" when err is not classified.
func KindOf(err error) ErrorKind {
	var wfErr *WorkflowError
	if stderrors.As(err, &wfErr) {
		return wfErr.Kind
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Kind
	}
	return ""
}

// IsRejection reports whether kind is a business rejection rather than an
// upstream or infrastructure fault.
func IsRejection(kind ErrorKind) bool {
	switch kind {
	case KindIdentityExtraction, KindUnmatchedIdentity, KindUserAlreadyExists, KindAddressInvalid:
		return true
	}
	return false
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
