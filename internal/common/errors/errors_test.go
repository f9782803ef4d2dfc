package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", NewTransientError("geocoding", stderrors.New("503")), true},
		{"timeout", NewTimeoutError("validate-address", context.DeadlineExceeded), true},
		{"wrapped transient", fmt.Errorf("call: %w", NewTransientError("textract", nil)), true},
		{"bare deadline", context.DeadlineExceeded, true},
		{"mismatch", NewUnmatchedIdentityError("birthdate"), false},
		{"address invalid", NewAddressInvalidError("score 0.5"), false},
		{"plain", stderrors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUnmatchedIdentityMessage(t *testing.T) {
	err := NewUnmatchedIdentityError("firstname")
	assert.Equal(t, "Provided firstname does not match with ID card firstname", err.Message)
	assert.Equal(t, KindUnmatchedIdentity, KindOf(err))
}

func TestWorkflowError_PublicCause(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
		err  error
		want string
	}{
		{"mismatch keeps field", KindUnmatchedIdentity, NewUnmatchedIdentityError("birthdate"), "Provided birthdate does not match with ID card birthdate"},
		{"duplicate", KindUserAlreadyExists, NewUserAlreadyExistsError("JEAN", "DUPONT"), MsgUserAlreadyExists},
		{"address", KindAddressInvalid, NewAddressInvalidError("score=0.4"), MsgAddressInvalid},
		{"extraction", KindIdentityExtraction, stderrors.New("InvalidS3ObjectException"), MsgIdentityExtraction},
		{"infrastructure hides details", KindInfrastructure, stderrors.New("pq: connection refused"), MsgInfrastructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wfErr := NewWorkflowError(tt.kind, "task", "req-1", tt.err)
			assert.Equal(t, tt.want, wfErr.PublicCause())
		})
	}
}

func TestWorkflowError_CauseIsVerbatim(t *testing.T) {
	upstream := stderrors.New("Request has unsupported document format")
	wfErr := NewWorkflowError(KindIdentityExtraction, "extract-identity", "req-1", upstream)

	assert.Equal(t, "Request has unsupported document format", wfErr.Cause)
	assert.ErrorIs(t, wfErr, upstream)

	found, ok := AsWorkflowError(fmt.Errorf("outer: %w", wfErr))
	require.True(t, ok)
	assert.Equal(t, "extract-identity", found.Task)
	assert.Equal(t, "req-1", found.RequestID)
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("workflow error uses kind as code", func(t *testing.T) {
		wfErr := NewWorkflowError(KindUserAlreadyExists, "check-duplicate-user", "req-9", NewUserAlreadyExistsError("A", "B"))
		bpmnErr := ConvertToBPMNError(wfErr)

		assert.Equal(t, "UserAlreadyExists", bpmnErr.Code)
		assert.Equal(t, 0, bpmnErr.Retries)
		vars := bpmnErr.ToErrorVariables()
		assert.Equal(t, "req-9", vars["requestId"])
		assert.Equal(t, "check-duplicate-user", vars["failedTask"])
	})

	t.Run("unclassified error is infrastructure", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(stderrors.New("boom"))
		assert.Equal(t, string(KindInfrastructure), bpmnErr.Code)
		assert.Equal(t, MsgInfrastructure, bpmnErr.Message)
		assert.Equal(t, 1, bpmnErr.Retries)
	})

	t.Run("transient error is retryable", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(NewTransientError("redis", stderrors.New("i/o timeout")))
		assert.True(t, bpmnErr.Retryable)
		assert.Equal(t, 3, bpmnErr.Retries)
	})
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(KindAddressInvalid))
	assert.True(t, IsRejection(KindIdentityExtraction))
	assert.False(t, IsRejection(KindTransientUpstream))
	assert.False(t, IsRejection(KindInfrastructure))
	assert.False(t, IsRejection(""))
}
