package errors

import (
	stderrors "errors"
	"fmt"
)

// WorkflowError is the terminal failure of one execution. Cause keeps the
// upstream text verbatim; PublicCause is what callers are shown.
type WorkflowError struct {
	Kind      ErrorKind `json:"kind"`
	Cause     string    `json:"cause"`
	RequestID string    `json:"requestId"`
	Task      string    `json:"task"`

	err error
}

func NewWorkflowError(kind ErrorKind, task, requestID string, err error) *WorkflowError {
	return &WorkflowError{
		Kind:      kind,
		Cause:     causeOf(err),
		RequestID: requestID,
		Task:      task,
		err:       err,
	}
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("WorkflowError[%s] task=%s requestId=%s: %s", e.Kind, e.Task, e.RequestID, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.err
}

// PublicCause is safe to display. Infrastructure failures never leak details.
func (e *WorkflowError) PublicCause() string {
	switch e.Kind {
	case KindUnmatchedIdentity:
		return e.Cause
	case KindUserAlreadyExists:
		return MsgUserAlreadyExists
	case KindAddressInvalid:
		return MsgAddressInvalid
	case KindIdentityExtraction:
		return MsgIdentityExtraction
	default:
		return MsgInfrastructure
	}
}

// AsWorkflowError extracts a WorkflowError from err's chain.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if stderrors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}

func causeOf(err error) string {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		if stdErr.Kind == KindUnmatchedIdentity || stdErr.Details == "" {
			return stdErr.Message
		}
		return stdErr.Message + ": " + stdErr.Details
	}
	return err.Error()
}
