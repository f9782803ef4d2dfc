package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
)

type TextractClient struct {
	client *textract.Client
}

func NewTextractClient(cfg awssdk.Config) *TextractClient {
	return &TextractClient{client: textract.NewFromConfig(cfg)}
}

func (t *TextractClient) AnalyzeDocument(ctx context.Context, input *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	return t.client.AnalyzeDocument(ctx, input, optFns...)
}
