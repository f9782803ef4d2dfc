package checkduplicateuser

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
)

const TaskType = "check-duplicate-user"

// Handler counts existing accounts with the same full name. The count and
// the later insert are not atomic: two concurrent requests for one name can
// both see zero.
type Handler struct {
	db     *sql.DB
	query  string
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		db:     db,
		query:  fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE lastname = $1 AND firstname = $2`, config.Table),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) CheckDuplicate(ctx context.Context, firstname, lastname string) error {
	output, err := h.Execute(ctx, &Input{Firstname: firstname, Lastname: lastname})
	if err != nil {
		return err
	}
	if output.Duplicate {
		return apperrors.NewUserAlreadyExistsError(firstname, lastname)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var count int
	if err := h.db.QueryRowContext(ctx, h.query, input.Lastname, input.Firstname).Scan(&count); err != nil {
		return nil, apperrors.NewTransientError("account store", fmt.Errorf("duplicate check failed: %w", err))
	}

	if count > 0 {
		h.logger.Info("duplicate user found", map[string]interface{}{
			"matchCount": count,
		})
	}

	return &Output{MatchCount: count, Duplicate: count > 0}, nil
}
