package notifybackends

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const TaskType = "notify-backends"

// eventNamespace seeds the name-based event ids.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("account-onboarding/events"))

type Handler struct {
	publishers []Publisher
	logger     logger.Logger
	now        func() time.Time

	mu sync.Mutex
	// delivered holds, per event id, the buses that already accepted it.
	// An entry lives until every bus has the event.
	delivered map[string]map[string]bool
}

func NewHandler(log logger.Logger, publishers ...Publisher) *Handler {
	return &Handler{
		publishers: publishers,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:        func() time.Time { return time.Now().UTC() },
		delivered:  map[string]map[string]bool{},
	}
}

// NewFromConfig wires the enabled buses. sns and kafka may be nil when the
// matching bus is disabled.
func NewFromConfig(cfg *Config, snsClient SNSAPI, kafka KafkaProducer, log logger.Logger) *Handler {
	publishers := []Publisher{}
	if cfg.SNSEnabled && snsClient != nil {
		publishers = append(publishers, NewSNSPublisher(snsClient, cfg.TopicARN))
	}
	if cfg.KafkaEnabled && kafka != nil {
		publishers = append(publishers, NewKafkaPublisher(kafka, cfg.KafkaTopic))
	}
	return NewHandler(log, publishers...)
}

// NotifyUserCreated publishes the UserCreated event to every bus that has not
// accepted it yet. The first failure is reported so the caller can retry.
func (h *Handler) NotifyUserCreated(ctx context.Context, user models.ValidatedUser) error {
	if len(h.publishers) == 0 {
		h.logger.Warn("No event bus configured, event dropped", map[string]interface{}{"userId": user.UserID})
		return nil
	}

	event := h.BuildEvent(user)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var firstErr error
	for _, p := range h.publishers {
		if h.wasDelivered(event.ID, p.Name()) {
			h.logger.Debug("Event already on bus, skipped", map[string]interface{}{"bus": p.Name(), "eventId": event.ID})
			continue
		}
		if err := p.Publish(ctx, event.DetailType, user.UserID, payload); err != nil {
			h.logger.Warn("Event publish failed", map[string]interface{}{
				"bus":    p.Name(),
				"userId": user.UserID,
				"error":  err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		h.markDelivered(event.ID, p.Name())
		h.logger.Debug("Event published", map[string]interface{}{"bus": p.Name(), "eventId": event.ID})
	}

	if firstErr == nil {
		h.forget(event.ID)
	}
	return firstErr
}

// BuildEvent is deterministic for a given user, so a republished event keeps
// its id and consumers can deduplicate.
func (h *Handler) BuildEvent(user models.ValidatedUser) models.DomainEvent {
	created := user.CreatedAt
	if created.IsZero() {
		created = h.now()
	}
	return models.DomainEvent{
		ID:         uuid.NewSHA1(eventNamespace, []byte(models.EventTypeUserCreated+":"+user.UserID)).String(),
		Source:     models.EventSourceUser,
		DetailType: models.EventTypeUserCreated,
		Detail:     user,
		Time:       created.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) wasDelivered(eventID, bus string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.delivered[eventID][bus]
}

func (h *Handler) markDelivered(eventID, bus string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delivered[eventID] == nil {
		h.delivered[eventID] = map[string]bool{}
	}
	h.delivered[eventID][bus] = true
}

func (h *Handler) forget(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.delivered, eventID)
}
