package workflow

import (
	"fmt"

	apperrors "account-onboarding/internal/common/errors"
)

// State is a node of the onboarding state machine.
type State string

const (
	StateStarted     State = "Started"
	StateInputChecks State = "InputChecks"
	StateMerged      State = "Merged"
	StateCommitting  State = "Committing"
	StateNotifying   State = "Notifying"
	StateSucceeded   State = "Succeeded"

	StateIdentityExtractionFailed State = "IdentityExtractionFailed"
	StateIdentityMismatchFailed   State = "IdentityMismatchFailed"
	StateDuplicateUserFailed      State = "DuplicateUserFailed"
	StateAddressInvalidFailed     State = "AddressInvalidFailed"
	StateInfrastructureFailed     State = "InfrastructureFailed"
)

var inputCheckExits = []State{
	StateMerged,
	StateIdentityExtractionFailed,
	StateIdentityMismatchFailed,
	StateDuplicateUserFailed,
	StateAddressInvalidFailed,
	StateInfrastructureFailed,
}

var allowedTransitions = map[State][]State{
	StateStarted:     {StateInputChecks},
	StateInputChecks: inputCheckExits,
	StateMerged:      {StateCommitting},
	StateCommitting:  {StateNotifying, StateInfrastructureFailed},
	StateNotifying:   {StateSucceeded},
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s.IsFailure()
}

func (s State) IsFailure() bool {
	switch s {
	case StateIdentityExtractionFailed,
		StateIdentityMismatchFailed,
		StateDuplicateUserFailed,
		StateAddressInvalidFailed,
		StateInfrastructureFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FailureStateFor maps an error kind to its terminal failure state.
func FailureStateFor(kind apperrors.ErrorKind) State {
	switch kind {
	case apperrors.KindIdentityExtraction:
		return StateIdentityExtractionFailed
	case apperrors.KindUnmatchedIdentity:
		return StateIdentityMismatchFailed
	case apperrors.KindUserAlreadyExists:
		return StateDuplicateUserFailed
	case apperrors.KindAddressInvalid:
		return StateAddressInvalidFailed
	default:
		return StateInfrastructureFailed
	}
}

type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
