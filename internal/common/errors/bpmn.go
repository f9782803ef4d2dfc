package errors

import "fmt"

// BPMNError is the shape thrown back to the Zeebe process when the
// start-account-creation job cannot complete.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ConvertToBPMNError maps any error onto a BPMN error whose code is the
// error kind.
func ConvertToBPMNError(err error) *BPMNError {
	if wfErr, ok := AsWorkflowError(err); ok {
		return &BPMNError{
			Code:    string(wfErr.Kind),
			Message: wfErr.PublicCause(),
			Details: wfErr.Cause,
			Retries: GetRetryCount(wfErr.Kind),
			ErrorVariables: map[string]interface{}{
				"requestId":  wfErr.RequestID,
				"failedTask": wfErr.Task,
			},
		}
	}

	kind := KindOf(err)
	if kind == "" {
		kind = KindInfrastructure
	}
	return &BPMNError{
		Code:      string(kind),
		Message:   MsgInfrastructure,
		Details:   detailsOf(err),
		Retryable: IsRetryable(err),
		Retries:   GetRetryCount(kind),
	}
}

// GetRetryCount is the number of job-level retries granted per kind.
func GetRetryCount(kind ErrorKind) int {
	switch kind {
	case KindTransientUpstream:
		return 3
	case KindInfrastructure:
		return 1
	default:
		return 0
	}
}
