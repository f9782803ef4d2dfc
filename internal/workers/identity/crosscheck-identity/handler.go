package crosscheckidentity

import (
	"context"
	"strings"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const TaskType = "crosscheck-identity"

const (
	FieldFirstname = "firstname"
	FieldLastname  = "lastname"
	FieldBirthdate = "birthdate"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// CrossCheck compares firstname, lastname then birthdate and reports only
// the first field that differs.
func (h *Handler) CrossCheck(ctx context.Context, declared models.WorkflowInput, extracted models.ExtractedIdentity) error {
	if field := h.firstMismatch(declared, extracted); field != "" {
		h.logger.Info("identity mismatch", map[string]interface{}{
			"requestId": declared.RequestID,
			"field":     field,
		})
		return apperrors.NewUnmatchedIdentityError(field)
	}
	return nil
}

func (h *Handler) firstMismatch(declared models.WorkflowInput, extracted models.ExtractedIdentity) string {
	switch {
	case !h.sameName(declared.Firstname, extracted.Firstname):
		return FieldFirstname
	case !h.sameName(declared.Lastname, extracted.Lastname):
		return FieldLastname
	case strings.TrimSpace(declared.Birthdate) != strings.TrimSpace(extracted.Birthdate):
		return FieldBirthdate
	}
	return ""
}

func (h *Handler) sameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if h.config.CaseSensitiveNames {
		return a == b
	}
	return strings.EqualFold(a, b)
}
