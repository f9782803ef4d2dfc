package startaccountcreation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/validation"
	"account-onboarding/internal/models"
)

const TaskType = "start-account-creation"

type Orchestrator interface {
	Execute(ctx context.Context, input models.WorkflowInput) (*models.Result, error)
}

// Handler runs one onboarding execution per Zeebe job. A failed execution is
// reported as a BPMN error coded with its error kind.
type Handler struct {
	config       *Config
	orchestrator Orchestrator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, orch Orchestrator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		orchestrator: orch,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	output, err := h.process(context.Background(), job.Variables)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.CommandTimeout)
	defer cancel()

	if err != nil {
		var inputErr *validation.InputError
		if stderrors.As(err, &inputErr) {
			h.throwInvalidInput(ctx, client, job, inputErr)
			return
		}
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}

// process decodes the job variables and runs the execution. The execution
// is detached from ctx. A terminal failure comes back as a
// *errors.WorkflowError.
func (h *Handler) process(ctx context.Context, variables string) (*Output, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, &validation.InputError{Errors: []validation.ValidationError{{
			Field:   "(root)",
			Message: fmt.Sprintf("parse variables: %v", err),
			Code:    "PARSE_ERROR",
		}}}
	}

	result, err := h.orchestrator.Execute(context.WithoutCancel(ctx), input)
	if err != nil {
		return nil, err
	}

	if result.Status != models.StatusSucceeded {
		return nil, &errors.WorkflowError{
			Kind:      errors.ErrorKind(result.ErrorKind),
			Cause:     result.ErrorCause,
			RequestID: result.RequestID,
			Task:      TaskType,
		}
	}

	return &Output{
		RequestID: result.RequestID,
		Status:    string(result.Status),
		State:     result.State,
		UserID:    result.UserID,
	}, nil
}

func (h *Handler) throwInvalidInput(ctx context.Context, client worker.JobClient, job entities.Job, inputErr *validation.InputError) {
	h.logger.Warn("job variables rejected", map[string]interface{}{
		"jobKey": job.Key,
		"error":  inputErr.Error(),
	})
	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(validation.ErrInvalidInput.Error()).
		ErrorMessage(inputErr.Error()).
		Send(ctx)
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
	}
}
