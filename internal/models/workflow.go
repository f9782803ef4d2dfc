// internal/models/workflow.go
package models

import "time"

// WorkflowInput is one account-creation request. Format validation happens
// before an execution is started.
type WorkflowInput struct {
	RequestID          string `json:"requestId"`
	Firstname          string `json:"firstname"`
	Lastname           string `json:"lastname"`
	Birthdate          string `json:"birthdate"`
	CountryOfBirth     string `json:"countryOfBirth"`
	CountryOfResidence string `json:"countryOfResidence"`
	PostalCode         string `json:"postalCode"`
	City               string `json:"city"`
	Street             string `json:"street"`
	Email              string `json:"email"`
	IDCardReference    string `json:"idCardReference"`
	CallerConnectionID string `json:"callerConnectionId,omitempty"`
}

type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusSucceeded ExecutionStatus = "SUCCEEDED"
	StatusFailed    ExecutionStatus = "FAILED"
)

// Result is returned to synchronous callers and pushed to asynchronous ones.
type Result struct {
	RequestID  string          `json:"requestId"`
	Status     ExecutionStatus `json:"status"`
	State      string          `json:"state"`
	UserID     string          `json:"userId,omitempty"`
	ErrorKind  string          `json:"errorKind,omitempty"`
	ErrorCause string          `json:"errorCause,omitempty"`
}

type StateTransition struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// ExecutionSnapshot is the persisted view of an execution, used for status
// polling and archiving.
type ExecutionSnapshot struct {
	RequestID   string            `json:"requestId"`
	State       string            `json:"state"`
	Status      ExecutionStatus   `json:"status"`
	UserID      string            `json:"userId,omitempty"`
	ErrorKind   string            `json:"errorKind,omitempty"`
	ErrorCause  string            `json:"errorCause,omitempty"`
	FailedTask  string            `json:"failedTask,omitempty"`
	History     []StateTransition `json:"history"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
	DurationMs  int64             `json:"durationMs,omitempty"`
	CallerAsync bool              `json:"callerAsync"`
}
