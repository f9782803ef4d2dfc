package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testRuntime(t *testing.T) (*Runtime, *sleepRecorder) {
	rec := &sleepRecorder{}
	rt := NewRuntime(logger.NewTestLogger(t), nil)
	rt.Sleep = rec.sleep
	return rt, rec
}

func retryingTask(maxAttempts int) TaskOptions {
	return TaskOptions{
		Name:        "test-task",
		Timeout:     time.Second,
		Retry:       RetryPolicy{MaxAttempts: maxAttempts, InitialInterval: 100 * time.Millisecond, BackoffCoefficient: 2, MaxInterval: time.Second},
		FailureKind: apperrors.KindInfrastructure,
	}
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 6, InitialInterval: time.Second, BackoffCoefficient: 2, MaxInterval: 8 * time.Second}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 8*time.Second, p.NextDelay(4))
	assert.Equal(t, 8*time.Second, p.NextDelay(5))

	assert.Equal(t, time.Duration(0), RetryPolicy{}.NextDelay(1))
	assert.Equal(t, 500*time.Millisecond, RetryPolicy{InitialInterval: 500 * time.Millisecond, BackoffCoefficient: 0.5}.NextDelay(3))
}

func TestRunTask_Success(t *testing.T) {
	rt, rec := testRuntime(t)

	value, err := RunTask(context.Background(), rt, retryingTask(3), "req-1", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Empty(t, rec.delays)
}

func TestRunTask_RetriesTransientErrors(t *testing.T) {
	rt, rec := testRuntime(t)
	var calls atomic.Int32

	value, err := RunTask(context.Background(), rt, retryingTask(3), "req-1", func(ctx context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, apperrors.NewTransientError("geocoder", errors.New("503"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.delays)
}

func TestRunTask_BoundedByMaxAttempts(t *testing.T) {
	rt, _ := testRuntime(t)
	var calls atomic.Int32

	_, err := RunTask(context.Background(), rt, retryingTask(3), "req-1", func(ctx context.Context) (struct{}, error) {
		calls.Add(1)
		return struct{}{}, apperrors.NewTransientError("postgres", errors.New("connection reset"))
	})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	wfErr, ok := apperrors.AsWorkflowError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInfrastructure, wfErr.Kind)
	assert.Equal(t, "test-task", wfErr.Task)
	assert.Equal(t, "req-1", wfErr.RequestID)
	assert.Contains(t, wfErr.Cause, "connection reset")
}

func TestRunTask_RejectionIsNotRetried(t *testing.T) {
	rt, rec := testRuntime(t)
	var calls atomic.Int32

	_, err := RunTask(context.Background(), rt, retryingTask(5), "req-1", func(ctx context.Context) (struct{}, error) {
		calls.Add(1)
		return struct{}{}, apperrors.NewUserAlreadyExistsError("JEAN", "DUPONT")
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.delays)
	assert.Equal(t, apperrors.KindUserAlreadyExists, apperrors.KindOf(err))
}

func TestRunTask_UnclassifiedErrorTakesFailureKind(t *testing.T) {
	rt, _ := testRuntime(t)
	opts := retryingTask(3)
	opts.FailureKind = apperrors.KindIdentityExtraction

	_, err := RunTask(context.Background(), rt, opts, "req-1", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, errors.New("unsupported document format")
	})

	wfErr, ok := apperrors.AsWorkflowError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindIdentityExtraction, wfErr.Kind)
	assert.Equal(t, "unsupported document format", wfErr.Cause)
}

func TestRunTask_TimeoutIsTransient(t *testing.T) {
	rt, _ := testRuntime(t)
	opts := retryingTask(2)
	opts.Timeout = 20 * time.Millisecond
	var calls atomic.Int32

	start := time.Now()
	_, err := RunTask(context.Background(), rt, opts, "req-1", func(ctx context.Context) (struct{}, error) {
		calls.Add(1)
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
	wfErr, ok := apperrors.AsWorkflowError(err)
	require.True(t, ok)
	assert.Contains(t, wfErr.Cause, "timed out")
}

func TestRunTask_TimeoutDoesNotWaitForStuckCall(t *testing.T) {
	rt, _ := testRuntime(t)
	opts := retryingTask(1)
	opts.Timeout = 20 * time.Millisecond
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := RunTask(context.Background(), rt, opts, "req-1", func(ctx context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunTask_PanicIsRecovered(t *testing.T) {
	rt, _ := testRuntime(t)

	_, err := RunTask(context.Background(), rt, retryingTask(3), "req-1", func(ctx context.Context) (struct{}, error) {
		panic("boom")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRunTask_CancelledContextStopsRetries(t *testing.T) {
	rt, _ := testRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	_, err := RunTask(ctx, rt, retryingTask(5), "req-1", func(ctx context.Context) (struct{}, error) {
		calls.Add(1)
		cancel()
		return struct{}{}, apperrors.NewTransientError("sns", errors.New("throttled"))
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
