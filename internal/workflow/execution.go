package workflow

import (
	"time"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/models"
)

// Execution is the runtime record of one WorkflowInput. It is owned by the
// goroutine running it; branch goroutines never touch it.
type Execution struct {
	RequestID string
	Input     models.WorkflowInput
	State     State
	History   []models.StateTransition
	Identity  *models.ExtractedIdentity
	Address   *models.AddressCheckResult
	User      *models.ValidatedUser
	Err       *apperrors.WorkflowError
	Async     bool

	StartedAt  time.Time
	FinishedAt time.Time

	now func() time.Time
}

func newExecution(input models.WorkflowInput, async bool, now func() time.Time) *Execution {
	return &Execution{
		RequestID: input.RequestID,
		Input:     input,
		State:     StateStarted,
		Async:     async,
		StartedAt: now(),
		now:       now,
	}
}

func (e *Execution) transition(to State) error {
	if !CanTransition(e.State, to) {
		return &TransitionError{From: e.State, To: to}
	}
	at := e.now()
	e.History = append(e.History, models.StateTransition{From: string(e.State), To: string(to), At: at})
	e.State = to
	if to.IsTerminal() {
		e.FinishedAt = at
	}
	return nil
}

func (e *Execution) fail(wfErr *apperrors.WorkflowError) error {
	e.Err = wfErr
	return e.transition(FailureStateFor(wfErr.Kind))
}

func (e *Execution) Status() models.ExecutionStatus {
	switch {
	case e.State == StateSucceeded:
		return models.StatusSucceeded
	case e.State.IsFailure():
		return models.StatusFailed
	default:
		return models.StatusRunning
	}
}

func (e *Execution) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return e.now().Sub(e.StartedAt)
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

func (e *Execution) Result() *models.Result {
	result := &models.Result{
		RequestID: e.RequestID,
		Status:    e.Status(),
		State:     string(e.State),
	}
	if e.State == StateSucceeded && e.User != nil {
		result.UserID = e.User.UserID
	}
	if e.Err != nil {
		result.ErrorKind = string(e.Err.Kind)
		result.ErrorCause = e.Err.PublicCause()
	}
	return result
}

func (e *Execution) Snapshot() models.ExecutionSnapshot {
	snap := models.ExecutionSnapshot{
		RequestID:   e.RequestID,
		State:       string(e.State),
		Status:      e.Status(),
		History:     append([]models.StateTransition(nil), e.History...),
		StartedAt:   e.StartedAt,
		CallerAsync: e.Async,
	}
	if e.User != nil && e.State == StateSucceeded {
		snap.UserID = e.User.UserID
	}
	if e.Err != nil {
		snap.ErrorKind = string(e.Err.Kind)
		snap.ErrorCause = e.Err.PublicCause()
		snap.FailedTask = e.Err.Task
	}
	if !e.FinishedAt.IsZero() {
		finished := e.FinishedAt
		snap.FinishedAt = &finished
		snap.DurationMs = e.FinishedAt.Sub(e.StartedAt).Milliseconds()
	}
	return snap
}
