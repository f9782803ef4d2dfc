package startaccountcreation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"account-onboarding/internal/common/config"
	"account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/validation"
	"account-onboarding/internal/models"
)

// ==========================
// Mock Orchestrator
// ==========================

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Execute(ctx context.Context, input models.WorkflowInput) (*models.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Result), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestHandler(t *testing.T) (*Handler, *MockOrchestrator) {
	orch := new(MockOrchestrator)
	handler := NewHandler(&Config{MaxJobsActive: 1, Timeout: time.Minute, CommandTimeout: time.Second}, orch, logger.NewZapAdapter(zaptest.NewLogger(t)))
	return handler, orch
}

func createVariables(t *testing.T) string {
	raw, err := json.Marshal(map[string]interface{}{
		"requestId":          "req-1",
		"firstname":          "JEAN",
		"lastname":           "DUPONT",
		"birthdate":          "1980-01-01",
		"countryOfBirth":     "FR",
		"countryOfResidence": "FR",
		"postalCode":         "75001",
		"city":               "Paris",
		"street":             "1 rue de Rivoli",
		"email":              "jean.dupont@example.com",
		"idCardReference":    "uploads/id-card.png",
		"processVersion":     3,
	})
	require.NoError(t, err)
	return string(raw)
}

// ==========================
// Tests
// ==========================

func TestHandler_Process_Succeeded(t *testing.T) {
	handler, orch := createTestHandler(t)
	orch.On("Execute", mock.Anything, mock.MatchedBy(func(in models.WorkflowInput) bool {
		return in.RequestID == "req-1" && in.IDCardReference == "uploads/id-card.png"
	})).Return(&models.Result{
		RequestID: "req-1",
		Status:    models.StatusSucceeded,
		State:     "Succeeded",
		UserID:    "user-1",
	}, nil)

	output, err := handler.process(context.Background(), createVariables(t))

	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", output.Status)
	assert.Equal(t, "user-1", output.UserID)
	orch.AssertExpectations(t)
}

func TestHandler_Process_FailedExecutionBecomesBPMNError(t *testing.T) {
	handler, orch := createTestHandler(t)
	orch.On("Execute", mock.Anything, mock.Anything).Return(&models.Result{
		RequestID:  "req-1",
		Status:     models.StatusFailed,
		State:      "AddressInvalidFailed",
		ErrorKind:  string(errors.KindAddressInvalid),
		ErrorCause: errors.MsgAddressInvalid,
	}, nil)

	_, err := handler.process(context.Background(), createVariables(t))
	require.Error(t, err)

	bpmnErr := errors.ConvertToBPMNError(err)
	assert.Equal(t, "AddressInvalid", bpmnErr.Code)
	assert.Equal(t, errors.MsgAddressInvalid, bpmnErr.Message)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.Equal(t, "req-1", bpmnErr.ErrorVariables["requestId"])
}

func TestHandler_Process_InfrastructureFailureIsRetriedByBroker(t *testing.T) {
	handler, orch := createTestHandler(t)
	orch.On("Execute", mock.Anything, mock.Anything).Return(&models.Result{
		RequestID:  "req-1",
		Status:     models.StatusFailed,
		State:      "InfrastructureFailed",
		ErrorKind:  string(errors.KindInfrastructure),
		ErrorCause: errors.MsgInfrastructure,
	}, nil)

	_, err := handler.process(context.Background(), createVariables(t))

	bpmnErr := errors.ConvertToBPMNError(err)
	assert.Equal(t, "InfrastructureError", bpmnErr.Code)
	assert.Equal(t, 1, bpmnErr.Retries)
}

func TestHandler_Process_InvalidVariables(t *testing.T) {
	handler, orch := createTestHandler(t)

	_, err := handler.process(context.Background(), "{not json")

	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
	orch.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestHandler_Process_ValidationErrorPassesThrough(t *testing.T) {
	handler, orch := createTestHandler(t)
	orch.On("Execute", mock.Anything, mock.Anything).Return(nil, &validation.InputError{
		Errors: []validation.ValidationError{{Field: "email", Message: "Does not match format 'email'"}},
	})

	_, err := handler.process(context.Background(), createVariables(t))

	var inputErr *validation.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "email", inputErr.Errors[0].Field)
}

func TestHandler_Process_ExecutionIgnoresJobDeadline(t *testing.T) {
	handler, orch := createTestHandler(t)
	orch.On("Execute", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return !hasDeadline && ctx.Err() == nil
	}), mock.Anything).Return(&models.Result{
		RequestID: "req-1",
		Status:    models.StatusSucceeded,
		State:     "Succeeded",
		UserID:    "user-1",
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	cancel()

	output, err := handler.process(ctx, createVariables(t))
	require.NoError(t, err)
	assert.Equal(t, "user-1", output.UserID)
	orch.AssertExpectations(t)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig(&config.Config{})
	assert.Equal(t, 10, cfg.MaxJobsActive)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
}
