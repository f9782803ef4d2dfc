package sendtodlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/metrics"
	"account-onboarding/internal/models"
)

const TaskType = "send-to-dlq"

// Handler appends failed identity extractions to a Redis list for manual
// review.
type Handler struct {
	config *Config
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, rdb *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) SendToDeadLetter(ctx context.Context, letter models.DeadLetter) error {
	payload, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	depth, err := h.redis.LPush(ctx, h.config.RedisKey, payload).Result()
	if err != nil {
		return apperrors.NewInfrastructureError("dead-letter sink", err)
	}
	metrics.DeadLetterWrites.Inc()

	h.logger.Warn("Identity extraction failure sent to dead-letter sink", map[string]interface{}{
		"requestId":       letter.RequestID,
		"idCardReference": letter.IDCardReference,
		"queueDepth":      depth,
	})
	return nil
}

// Pending returns up to limit letters, newest first.
func (h *Handler) Pending(ctx context.Context, limit int64) ([]models.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := h.redis.LRange(ctx, h.config.RedisKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}

	letters := make([]models.DeadLetter, 0, len(raw))
	for _, item := range raw {
		var letter models.DeadLetter
		if err := json.Unmarshal([]byte(item), &letter); err != nil {
			h.logger.Warn("Skipping malformed dead letter", map[string]interface{}{"error": err.Error()})
			continue
		}
		letters = append(letters, letter)
	}
	return letters, nil
}
