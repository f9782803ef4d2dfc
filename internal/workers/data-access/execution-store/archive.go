package executionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"account-onboarding/internal/models"
)

// Archive indexes terminal executions in Elasticsearch. Running snapshots
// are ignored.
type Archive struct {
	client *elasticsearch.Client
	index  string
}

func NewArchive(client *elasticsearch.Client, index string) *Archive {
	return &Archive{client: client, index: index}
}

func (a *Archive) Record(ctx context.Context, snapshot models.ExecutionSnapshot) error {
	if snapshot.Status == models.StatusRunning {
		return nil
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	res, err := a.client.Index(a.index, bytes.NewReader(body),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(snapshot.RequestID),
	)
	if err != nil {
		return fmt.Errorf("archive index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("archive index error: %s", res.Status())
	}
	return nil
}

func (a *Archive) Get(ctx context.Context, requestID string) (*models.ExecutionSnapshot, error) {
	res, err := a.client.Get(a.index, requestID, a.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("archive get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("archive get error: %s", res.Status())
	}

	var doc struct {
		Source models.ExecutionSnapshot `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode archive document: %w", err)
	}
	return &doc.Source, nil
}

// CountByState aggregates archived executions per terminal state.
func (a *Archive) CountByState(ctx context.Context) (map[string]int64, error) {
	query := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"states": map[string]interface{}{
				"terms": map[string]interface{}{"field": "state", "size": 20},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := a.client.Search(
		a.client.Search.WithContext(ctx),
		a.client.Search.WithIndex(a.index),
		a.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("archive search error: %s", res.Status())
	}

	var parsed struct {
		Aggregations struct {
			States struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"states"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	counts := make(map[string]int64, len(parsed.Aggregations.States.Buckets))
	for _, b := range parsed.Aggregations.States.Buckets {
		counts[b.Key] = b.DocCount
	}
	return counts, nil
}
