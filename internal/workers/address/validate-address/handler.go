package validateaddress

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "account-onboarding/internal/common/errors"
	commonhttp "account-onboarding/internal/common/http"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const TaskType = "validate-address"

type Geocoder interface {
	GetJSON(ctx context.Context, url string, out interface{}) error
}

type Handler struct {
	client Geocoder
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, client Geocoder, log logger.Logger) *Handler {
	return &Handler{
		client: client,
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) ValidateAddress(ctx context.Context, input models.WorkflowInput) (*models.AddressCheckResult, error) {
	output, err := h.Execute(ctx, &Input{
		Street:     input.Street,
		City:       input.City,
		PostalCode: input.PostalCode,
	})
	if err != nil {
		return nil, err
	}
	return &models.AddressCheckResult{
		NormalizedAddress: output.NormalizedAddress,
		ConfidenceScore:   output.ConfidenceScore,
	}, nil
}

// Execute looks the address up and keeps it only when the best match scores
// above the threshold. Only the first feature is considered.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var resp SearchResponse
	if err := h.client.GetJSON(ctx, h.searchURL(input), &resp); err != nil {
		return nil, classify(err)
	}

	if len(resp.Features) == 0 {
		return nil, apperrors.NewAddressInvalidError("no matching address")
	}
	best := resp.Features[0].Properties
	if best.Score == nil {
		return nil, apperrors.NewAddressInvalidError("best match has no score")
	}

	score := *best.Score
	if score <= h.config.Threshold {
		h.logger.Info("address below confidence threshold", map[string]interface{}{
			"score":     score,
			"threshold": h.config.Threshold,
		})
		return nil, apperrors.NewAddressInvalidError(fmt.Sprintf("score %.4f not above threshold %.2f", score, h.config.Threshold))
	}

	label := best.Label
	if label == "" {
		label = strings.TrimSpace(fmt.Sprintf("%s %s %s", input.Street, input.PostalCode, input.City))
	}
	return &Output{NormalizedAddress: label, ConfidenceScore: score}, nil
}

func (h *Handler) searchURL(input *Input) string {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(input.Street+" "+input.City))
	params.Set("postcode", input.PostalCode)
	params.Set("autocomplete", "0")
	params.Set("limit", "1")
	return strings.TrimRight(h.config.BaseURL, "/") + "/search/?" + params.Encode()
}

// classify separates request failures worth retrying from rejections.
func classify(err error) error {
	var statusErr *commonhttp.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Temporary() {
			return apperrors.NewTransientError("geocoding", err)
		}
		return apperrors.NewAddressInvalidError(err.Error())
	case errors.Is(err, commonhttp.ErrDecode):
		return apperrors.NewAddressInvalidError(err.Error())
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.NewTransientError("geocoding", err)
	}
}
