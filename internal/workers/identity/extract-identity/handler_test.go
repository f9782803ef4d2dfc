package extractidentity

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
)

// ===== Mocks =====

type MockTextract struct {
	mock.Mock
}

func (m *MockTextract) AnalyzeDocument(ctx context.Context, input *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*textract.AnalyzeDocumentOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// ===== Test Helper Functions =====

// formBlocks builds KEY/VALUE block pairs the way Textract returns them.
func formBlocks(pairs ...[2]string) []types.Block {
	var blocks []types.Block
	for i, p := range pairs {
		keyID := fmt.Sprintf("key-%d", i)
		valueID := fmt.Sprintf("value-%d", i)
		keyWord := fmt.Sprintf("kw-%d", i)
		valueWord := fmt.Sprintf("vw-%d", i)

		blocks = append(blocks,
			types.Block{
				Id:          aws.String(keyID),
				BlockType:   types.BlockTypeKeyValueSet,
				EntityTypes: []types.EntityType{types.EntityTypeKey},
				Relationships: []types.Relationship{
					{Type: types.RelationshipTypeValue, Ids: []string{valueID}},
					{Type: types.RelationshipTypeChild, Ids: []string{keyWord}},
				},
			},
			types.Block{
				Id:          aws.String(valueID),
				BlockType:   types.BlockTypeKeyValueSet,
				EntityTypes: []types.EntityType{types.EntityTypeValue},
				Relationships: []types.Relationship{
					{Type: types.RelationshipTypeChild, Ids: []string{valueWord}},
				},
			},
			types.Block{Id: aws.String(keyWord), BlockType: types.BlockTypeWord, Text: aws.String(p[0])},
			types.Block{Id: aws.String(valueWord), BlockType: types.BlockTypeWord, Text: aws.String(p[1])},
		)
	}
	return blocks
}

func newTestHandler(t *testing.T, client TextractAPI) *Handler {
	return NewHandler(&Config{Bucket: "uploads"}, client, logger.NewTestLogger(t))
}

// ===== Tests =====

func TestHandler_ExtractIdentity_FrenchCard(t *testing.T) {
	client := new(MockTextract)
	client.On("AnalyzeDocument", mock.Anything, mock.MatchedBy(func(in *textract.AnalyzeDocumentInput) bool {
		return *in.Document.S3Object.Bucket == "uploads" &&
			*in.Document.S3Object.Name == "ids/jean.png" &&
			len(in.FeatureTypes) == 1 && in.FeatureTypes[0] == types.FeatureTypeForms
	})).Return(&textract.AnalyzeDocumentOutput{Blocks: formBlocks(
		[2]string{"Nom:", "DUPONT"},
		[2]string{"Prénom(s):", "JEAN, PIERRE"},
		[2]string{"Né(e) le:", "01.01.1980"},
	)}, nil)

	identity, err := newTestHandler(t, client).ExtractIdentity(context.Background(), "ids/jean.png")

	require.NoError(t, err)
	assert.Equal(t, "JEAN", identity.Firstname)
	assert.Equal(t, "DUPONT", identity.Lastname)
	assert.Equal(t, "1980-01-01", identity.Birthdate)
	client.AssertExpectations(t)
}

func TestHandler_Execute_EnglishLabelsAndS3Reference(t *testing.T) {
	client := new(MockTextract)
	client.On("AnalyzeDocument", mock.Anything, mock.MatchedBy(func(in *textract.AnalyzeDocumentInput) bool {
		return *in.Document.S3Object.Bucket == "other-bucket" && *in.Document.S3Object.Name == "cards/x.jpg"
	})).Return(&textract.AnalyzeDocumentOutput{Blocks: formBlocks(
		[2]string{"Surname", "DUPONT"},
		[2]string{"Given names", "JEAN"},
		[2]string{"Date of birth", "1 2 1980"},
	)}, nil)

	output, err := newTestHandler(t, client).Execute(context.Background(), "s3://other-bucket/cards/x.jpg")

	require.NoError(t, err)
	assert.Equal(t, []string{"JEAN"}, output.Firstnames)
	assert.Equal(t, "1980-02-01", output.Birthdate)
}

func TestHandler_Execute_MissingFields(t *testing.T) {
	client := new(MockTextract)
	client.On("AnalyzeDocument", mock.Anything, mock.Anything).
		Return(&textract.AnalyzeDocumentOutput{Blocks: formBlocks(
			[2]string{"Nom", "DUPONT"},
		)}, nil)

	_, err := newTestHandler(t, client).Execute(context.Background(), "ids/partial.png")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindIdentityExtraction, apperrors.KindOf(err))
	assert.False(t, apperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "firstname, birthdate")
}

func TestHandler_Execute_ThrottlingIsTransient(t *testing.T) {
	client := new(MockTextract)
	client.On("AnalyzeDocument", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"})

	_, err := newTestHandler(t, client).Execute(context.Background(), "ids/jean.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestHandler_Execute_UpstreamRejectionKeepsCause(t *testing.T) {
	client := new(MockTextract)
	client.On("AnalyzeDocument", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "UnsupportedDocumentException", Message: "Request has unsupported document format"})

	_, err := newTestHandler(t, client).Execute(context.Background(), "ids/jean.gif")

	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "unsupported document format")
}

func TestHandler_Execute_MalformedReference(t *testing.T) {
	client := new(MockTextract)

	_, err := newTestHandler(t, client).Execute(context.Background(), "s3://bucket-only")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindIdentityExtraction, apperrors.KindOf(err))
	client.AssertNotCalled(t, "AnalyzeDocument", mock.Anything, mock.Anything)
}

func TestNormalizeBirthdate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"01 01 1980", "1980-01-01", false},
		{"01.01.1980", "1980-01-01", false},
		{"1/2/1980", "1980-02-01", false},
		{"31. 12. 1999", "1999-12-31", false},
		{"1980-01-01", "1980-01-01", false},
		{"31 02 1980", "", true},
		{"01 1980", "", true},
		{"01 01 80", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeBirthdate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
