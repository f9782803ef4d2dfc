package notifyuser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/redis/go-redis/v9"

	awsclient "account-onboarding/internal/common/aws"
	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const (
	TaskType     = "notify-user"
	emailSubject = "Your account registration"
)

type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Handler pushes the terminal result to the caller's live connection channel
// and mails successful registrations. Either channel may be absent.
type Handler struct {
	config *Config
	redis  *redis.Client
	ses    SESAPI
	logger logger.Logger
}

func NewHandler(config *Config, rdb *redis.Client, sesClient SESAPI, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		redis:  rdb,
		ses:    sesClient,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) NotifyUser(ctx context.Context, n models.UserNotification) error {
	if n.CallerConnectionID != "" {
		if err := h.push(ctx, n); err != nil {
			return err
		}
	}

	if n.Status == string(models.StatusSucceeded) && n.Email != "" && h.config.EmailEnabled && h.ses != nil {
		if err := h.mail(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) push(ctx context.Context, n models.UserNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	channel := h.config.ChannelPrefix + n.CallerConnectionID
	receivers, err := h.redis.Publish(ctx, channel, payload).Result()
	if err != nil {
		return apperrors.NewTransientError("redis", fmt.Errorf("publish to %s: %w", channel, err))
	}

	// Nobody subscribed means the caller went away; that is not retried.
	if receivers == 0 {
		h.logger.Warn("No subscriber on caller connection", map[string]interface{}{
			"requestId": n.RequestID,
			"channel":   channel,
		})
	}
	return nil
}

func (h *Handler) mail(ctx context.Context, n models.UserNotification) error {
	body := fmt.Sprintf("Hello %s,\n\n%s\n", n.Firstname, n.Message)
	_, err := h.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{n.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(emailSubject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		if awsclient.IsTransient(err) {
			return apperrors.NewTransientError("ses", err)
		}
		return fmt.Errorf("ses send email: %w", err)
	}

	h.logger.Info("Registration email sent", map[string]interface{}{"requestId": n.RequestID})
	return nil
}
