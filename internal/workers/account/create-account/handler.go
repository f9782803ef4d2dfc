package createaccount

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const TaskType = "create-account"

type Handler struct {
	db     *sql.DB
	config *Config
	insert string
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		db:     db,
		config: config,
		insert: fmt.Sprintf(`
		INSERT INTO %s (
			id, request_id, firstname, lastname, birthdate,
			country_of_birth, country_of_residence, street, postal_code, city,
			normalized_address, address_score, email, idcard_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (id) DO NOTHING`, config.Table),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) CreateAccount(ctx context.Context, user models.ValidatedUser) error {
	_, err := h.Execute(ctx, &Input{User: user})
	return err
}

// Execute persists the account keyed by its user id. Replaying the same
// user is a no-op.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	user := input.User
	if user.UserID == "" {
		return nil, apperrors.NewInfrastructureError("account store", fmt.Errorf("user id is required"))
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := h.db.ExecContext(ctx, h.insert,
		user.UserID,
		user.RequestID,
		user.Firstname,
		user.Lastname,
		user.Birthdate,
		user.CountryOfBirth,
		user.CountryOfResidence,
		user.Street,
		user.PostalCode,
		user.City,
		user.NormalizedAddress,
		user.AddressScore,
		user.Email,
		user.IDCardReference,
		createdAt,
	)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("account store", fmt.Errorf("insert failed: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInfrastructureError("account store", fmt.Errorf("rows affected: %w", err))
	}
	created := affected > 0

	if created && h.config.AuditEnabled {
		h.audit(ctx, user)
	}

	h.logger.Info("account stored", map[string]interface{}{
		"userId":    user.UserID,
		"requestId": user.RequestID,
		"created":   created,
	})

	return &Output{
		UserID:    user.UserID,
		Created:   created,
		CreatedAt: createdAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) audit(ctx context.Context, user models.ValidatedUser) {
	details, err := json.Marshal(map[string]interface{}{
		"requestId":          user.RequestID,
		"countryOfResidence": user.CountryOfResidence,
		"addressScore":       user.AddressScore,
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"account_created",
		"account",
		user.UserID,
		details,
		time.Now().UTC(),
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"userId": user.UserID,
		})
	}
}
