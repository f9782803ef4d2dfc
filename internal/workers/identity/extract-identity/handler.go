package extractidentity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	awsclient "account-onboarding/internal/common/aws"
	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

const TaskType = "extract-identity"

// TextractAPI is the slice of the Textract client used here.
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, input *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

type Handler struct {
	client TextractAPI
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, client TextractAPI, log logger.Logger) *Handler {
	return &Handler{
		client: client,
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// ExtractIdentity reads firstname, lastname and birthdate off the ID card.
// Only the first given name is kept.
func (h *Handler) ExtractIdentity(ctx context.Context, documentRef string) (*models.ExtractedIdentity, error) {
	output, err := h.Execute(ctx, documentRef)
	if err != nil {
		return nil, err
	}
	return &models.ExtractedIdentity{
		Firstname: output.Firstnames[0],
		Lastname:  output.Lastname,
		Birthdate: output.Birthdate,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, documentRef string) (*Output, error) {
	bucket, key, err := h.resolveDocument(documentRef)
	if err != nil {
		return nil, apperrors.NewIdentityExtractionError(err.Error(), err)
	}

	resp, err := h.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []types.FeatureType{types.FeatureTypeForms},
	})
	if err != nil {
		if awsclient.IsTransient(err) {
			return nil, apperrors.NewTransientError("textract", err)
		}
		return nil, fmt.Errorf("analyze document %s: %w", documentRef, err)
	}

	fields := formFields(resp.Blocks)
	output, missing := identityFromFields(fields)
	if len(missing) > 0 {
		h.logger.Warn("identity fields missing from document", map[string]interface{}{
			"document": documentRef,
			"missing":  missing,
			"fields":   len(fields),
		})
		return nil, apperrors.NewIdentityExtractionError("missing fields: "+strings.Join(missing, ", "), nil)
	}

	return output, nil
}

// resolveDocument accepts "s3://bucket/key" or a key in the upload bucket.
func (h *Handler) resolveDocument(ref string) (string, string, error) {
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return "", "", fmt.Errorf("malformed document reference %q", ref)
		}
		return bucket, key, nil
	}
	if h.config.Bucket == "" {
		return "", "", fmt.Errorf("no upload bucket configured for document %q", ref)
	}
	return h.config.Bucket, strings.TrimPrefix(ref, "/"), nil
}
