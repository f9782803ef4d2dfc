package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/metrics"
	"account-onboarding/internal/common/observability"
)

// RetryPolicy bounds how often a task is attempted. Only transient errors
// are retried.
type RetryPolicy struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaxInterval        time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// NextDelay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if p.InitialInterval <= 0 {
		return 0
	}
	coeff := p.BackoffCoefficient
	if coeff < 1 {
		coeff = 1
	}
	delay := float64(p.InitialInterval) * math.Pow(coeff, float64(attempt-1))
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(delay)
}

// TaskOptions declares one task: its per-attempt timeout, its retry policy
// and the error kind it surfaces when it cannot complete.
type TaskOptions struct {
	Name        string
	Timeout     time.Duration
	Retry       RetryPolicy
	FailureKind apperrors.ErrorKind
}

// Runtime carries what every task attempt needs. Sleep is replaceable so
// tests do not wait on real backoff timers.
type Runtime struct {
	Logger logger.Logger
	Obs    *observability.Observability
	Sleep  func(ctx context.Context, d time.Duration) error
}

func NewRuntime(log logger.Logger, obs *observability.Observability) *Runtime {
	return &Runtime{Logger: log, Obs: obs, Sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type attemptResult[T any] struct {
	value T
	err   error
}

// RunTask executes fn under opts. Each attempt runs with its own deadline;
// a timed out attempt counts as transient. fn is invoked at most
// opts.Retry.MaxAttempts times. Any failure is returned as a
// *errors.WorkflowError tagged with the task name and request id.
func RunTask[T any](ctx context.Context, rt *Runtime, opts TaskOptions, requestID string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	log := logger.ForTask(rt.Logger, requestID, opts.Name)
	maxAttempts := opts.Retry.attempts()

	for attempt := 1; ; attempt++ {
		value, err := runAttempt(ctx, rt, opts, requestID, attempt, fn)
		if err == nil {
			return value, nil
		}

		if !apperrors.IsRetryable(err) || attempt >= maxAttempts || ctx.Err() != nil {
			log.Warn("Task failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return zero, toWorkflowError(opts, requestID, err)
		}

		delay := opts.Retry.NextDelay(attempt)
		log.Info("Retrying task after transient error", map[string]interface{}{
			"attempt": attempt,
			"delayMs": delay.Milliseconds(),
			"error":   err.Error(),
		})
		if sleepErr := rt.Sleep(ctx, delay); sleepErr != nil {
			return zero, toWorkflowError(opts, requestID, err)
		}
	}
}

func runAttempt[T any](ctx context.Context, rt *Runtime, opts TaskOptions, requestID string, attempt int, fn func(context.Context) (T, error)) (T, error) {
	spanCtx, span := rt.Obs.StartSpan(ctx, "task."+opts.Name,
		attribute.String("requestId", requestID),
		attribute.Int("attempt", attempt),
	)

	attemptCtx := spanCtx
	cancel := func() {}
	if opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(spanCtx, opts.Timeout)
	}
	defer cancel()

	start := time.Now()
	done := make(chan attemptResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult[T]{err: fmt.Errorf("task %s panicked: %v", opts.Name, r)}
			}
		}()
		v, err := fn(attemptCtx)
		done <- attemptResult[T]{value: v, err: err}
	}()

	var res attemptResult[T]
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		res.err = attemptCtx.Err()
	}

	if res.err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.err = apperrors.NewTimeoutError(opts.Name, res.err)
	}

	outcome := "success"
	if res.err != nil {
		outcome = "error"
		if apperrors.IsRetryable(res.err) {
			outcome = "transient"
		}
	}
	metrics.TaskAttempts.WithLabelValues(opts.Name, outcome).Inc()
	metrics.TaskDuration.WithLabelValues(opts.Name).Observe(time.Since(start).Seconds())
	rt.Obs.RecordTaskAttempt(ctx, opts.Name, outcome)
	observability.EndSpan(span, res.err)

	return res.value, res.err
}

// toWorkflowError keeps business rejections as they are and folds anything
// else into the task's declared failure kind.
func toWorkflowError(opts TaskOptions, requestID string, err error) *apperrors.WorkflowError {
	if wfErr, ok := apperrors.AsWorkflowError(err); ok {
		return wfErr
	}
	kind := apperrors.KindOf(err)
	if !apperrors.IsRejection(kind) {
		kind = opts.FailureKind
	}
	if kind == "" {
		kind = apperrors.KindInfrastructure
	}
	return apperrors.NewWorkflowError(kind, opts.Name, requestID, err)
}
