package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/validation"
	"account-onboarding/internal/models"
	executionstore "account-onboarding/internal/workers/data-access/execution-store"
)

// Orchestrator is the onboarding core seen by the HTTP layer.
type Orchestrator interface {
	Execute(ctx context.Context, input models.WorkflowInput) (*models.Result, error)
	Start(ctx context.Context, input models.WorkflowInput) (string, error)
}

type ExecutionReader interface {
	Get(ctx context.Context, requestID string) (*models.ExecutionSnapshot, error)
	CountByState(ctx context.Context) (map[string]int64, error)
}

type DeadLetterReader interface {
	Pending(ctx context.Context, limit int64) ([]models.DeadLetter, error)
}

// Handler wires the onboarding endpoints to the orchestrator.
type Handler struct {
	orchestrator Orchestrator
	executions   ExecutionReader
	deadLetters  DeadLetterReader
	logger       logger.Logger
}

func NewHandler(orch Orchestrator, executions ExecutionReader, deadLetters DeadLetterReader, log logger.Logger) *Handler {
	return &Handler{
		orchestrator: orch,
		executions:   executions,
		deadLetters:  deadLetters,
		logger:       log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts", h.HandleCreate)
	r.Post("/accounts/async", h.HandleCreateAsync)
	r.Get("/executions/stats", h.HandleExecutionStats)
	r.Get("/executions/{requestId}", h.HandleGetExecution)
	r.Get("/dead-letters", h.HandleListDeadLetters)
}

// HandleCreate runs the saga to completion. Business rejections are a normal
// 200 Result; only malformed input is refused.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.orchestrator.Execute(r.Context(), input)
	if err != nil {
		h.writeInputError(w, err)
		return
	}

	h.logger.Info("account request processed", map[string]interface{}{
		"requestId":  result.RequestID,
		"state":      result.State,
		"durationMs": time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleCreateAsync(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}

	requestID, err := h.orchestrator.Start(r.Context(), input)
	if err != nil {
		h.writeInputError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"requestId": requestID,
		"status":    string(models.StatusRunning),
	})
}

func (h *Handler) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	snapshot, err := h.executions.Get(r.Context(), requestID)
	if errors.Is(err, executionstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "EXECUTION_NOT_FOUND", "no execution with this request id")
		return
	}
	if err != nil {
		h.logger.Error("execution lookup failed", map[string]interface{}{
			"requestId": requestID,
			"error":     err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "execution lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) HandleExecutionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.executions.CountByState(r.Context())
	if errors.Is(err, executionstore.ErrArchiveDisabled) {
		writeError(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "execution archive is not configured")
		return
	}
	if err != nil {
		h.logger.Error("execution stats failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "execution stats failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"byState": counts})
}

func (h *Handler) HandleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	letters, err := h.deadLetters.Pending(r.Context(), limit)
	if err != nil {
		h.logger.Error("dead-letter listing failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "dead-letter listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(letters),
		"deadLetters": letters,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.WorkflowInput, bool) {
	var input models.WorkflowInput
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return input, false
	}
	return input, true
}

func (h *Handler) writeInputError(w http.ResponseWriter, err error) {
	var inputErr *validation.InputError
	if errors.As(err, &inputErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  validation.ErrInvalidInput.Error(),
			"fields": inputErr.Errors,
		})
		return
	}
	h.logger.Error("account request rejected", map[string]interface{}{"error": err.Error()})
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "request could not be processed")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
