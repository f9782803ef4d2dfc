package camunda

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-onboarding/internal/common/errors"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, isRetryableZeebeError(stderrors.New("context deadline exceeded")))
	assert.False(t, isRetryableZeebeError(stderrors.New("rpc error: code = NotFound desc = job not found")))
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(stderrors.New("deadline exceeded"), "complete-job", 1)
	assert.Equal(t, errors.KindTransientUpstream, errors.KindOf(err))
	assert.Contains(t, err.Error(), "timed out")

	err = mapZeebeError(stderrors.New("code = Unavailable"), "complete-job", 0)
	assert.True(t, errors.IsRetryable(err))

	err = mapZeebeError(stderrors.New("permission denied"), "complete-job", 0)
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		result, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			if calls.Add(1) < 3 {
				return nil, stderrors.New("connection reset by peer")
			}
			return "done", nil
		}, "publish-message")

		require.NoError(t, err)
		assert.Equal(t, "done", result)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		var calls atomic.Int32
		_, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls.Add(1)
			return nil, stderrors.New("invalid argument")
		}, "publish-message")

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		_, err := testClient().ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls.Add(1)
			return nil, stderrors.New("unavailable")
		}, "publish-message")

		require.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.True(t, errors.IsRetryable(err))
	})
}
