package startaccountcreation

import "account-onboarding/internal/models"

type Input = models.WorkflowInput

// Output is merged back into the process instance variables.
type Output struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	State     string `json:"state"`
	UserID    string `json:"userId,omitempty"`
}
