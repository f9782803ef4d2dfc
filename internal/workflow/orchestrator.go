package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	apperrors "account-onboarding/internal/common/errors"
	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/common/metrics"
	"account-onboarding/internal/common/observability"
	"account-onboarding/internal/common/validation"
	"account-onboarding/internal/models"
)

const (
	MessageRegistrationSucceeded = "Registration successful, your account will be created within 24 hours."
	messageRegistrationFailed    = "Error during the subscription: "
)

type IdentityExtractor interface {
	ExtractIdentity(ctx context.Context, documentRef string) (*models.ExtractedIdentity, error)
}

type IdentityVerifier interface {
	CrossCheck(ctx context.Context, declared models.WorkflowInput, extracted models.ExtractedIdentity) error
}

type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, firstname, lastname string) error
}

type AddressValidator interface {
	ValidateAddress(ctx context.Context, input models.WorkflowInput) (*models.AddressCheckResult, error)
}

type AccountStore interface {
	CreateAccount(ctx context.Context, user models.ValidatedUser) error
}

type EventNotifier interface {
	NotifyUserCreated(ctx context.Context, user models.ValidatedUser) error
}

type UserNotifier interface {
	NotifyUser(ctx context.Context, notification models.UserNotification) error
}

type DeadLetterSink interface {
	SendToDeadLetter(ctx context.Context, letter models.DeadLetter) error
}

// ExecutionRecorder persists execution snapshots. Recording is best effort.
type ExecutionRecorder interface {
	Record(ctx context.Context, snapshot models.ExecutionSnapshot) error
}

// Dependencies are the collaborators of the saga. Recorder may be nil.
type Dependencies struct {
	Extractor   IdentityExtractor
	Verifier    IdentityVerifier
	Duplicates  DuplicateChecker
	Addresses   AddressValidator
	Accounts    AccountStore
	Events      EventNotifier
	Users       UserNotifier
	DeadLetters DeadLetterSink
	Recorder    ExecutionRecorder
}

func (d Dependencies) validate() error {
	missing := []string{}
	if d.Extractor == nil {
		missing = append(missing, "Extractor")
	}
	if d.Verifier == nil {
		missing = append(missing, "Verifier")
	}
	if d.Duplicates == nil {
		missing = append(missing, "Duplicates")
	}
	if d.Addresses == nil {
		missing = append(missing, "Addresses")
	}
	if d.Accounts == nil {
		missing = append(missing, "Accounts")
	}
	if d.Events == nil {
		missing = append(missing, "Events")
	}
	if d.Users == nil {
		missing = append(missing, "Users")
	}
	if d.DeadLetters == nil {
		missing = append(missing, "DeadLetters")
	}
	if len(missing) > 0 {
		return fmt.Errorf("workflow dependencies missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Config struct {
	Policies map[string]TaskOptions
	// DetachedTimeout bounds fire-and-forget work (dead letters, notifications).
	DetachedTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Policies:        DefaultPolicies(),
		DetachedTimeout: 30 * time.Second,
	}
}

// Orchestrator runs the onboarding saga. Executions are independent; the
// orchestrator itself only tracks detached work for Drain.
type Orchestrator struct {
	cfg      Config
	deps     Dependencies
	logger   logger.Logger
	obs      *observability.Observability
	runtime  *Runtime
	detached sync.WaitGroup

	newID func() string
	now   func() time.Time
}

func New(cfg Config, deps Dependencies, log logger.Logger, obs *observability.Observability) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicies()
	}
	if cfg.DetachedTimeout <= 0 {
		cfg.DetachedTimeout = 30 * time.Second
	}

	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		obs:     obs,
		runtime: NewRuntime(log, obs),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Execute runs one execution to a terminal state and returns its result.
// The error is non-nil only when input fails format validation, in which
// case no execution is started. Once started, the execution ignores the
// caller's cancellation and deadline; only per-task timeouts apply.
func (o *Orchestrator) Execute(ctx context.Context, input models.WorkflowInput) (*models.Result, error) {
	input, err := o.prepare(input)
	if err != nil {
		return nil, err
	}
	exec := newExecution(input, false, o.now)
	o.run(context.WithoutCancel(ctx), exec)
	return exec.Result(), nil
}

// Start acknowledges the request and runs the execution in the background.
// The terminal result reaches the caller through the user notifier.
func (o *Orchestrator) Start(ctx context.Context, input models.WorkflowInput) (string, error) {
	input, err := o.prepare(input)
	if err != nil {
		return "", err
	}
	exec := newExecution(input, true, o.now)
	o.record(ctx, exec)

	o.detached.Add(1)
	go func() {
		defer o.detached.Done()
		o.run(context.WithoutCancel(ctx), exec)
	}()
	return input.RequestID, nil
}

// Drain waits for background executions and detached tasks.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.detached.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) prepare(input models.WorkflowInput) (models.WorkflowInput, error) {
	if input.RequestID == "" {
		input.RequestID = o.newID()
	}
	if err := validation.Validate(input); err != nil {
		return input, err
	}
	return input, nil
}

func (o *Orchestrator) run(ctx context.Context, exec *Execution) {
	metrics.ExecutionsActive.Inc()
	defer metrics.ExecutionsActive.Dec()

	ctx, span := o.obs.StartSpan(ctx, "onboarding.execution", attribute.String("requestId", exec.RequestID))
	log := logger.ForExecution(o.logger, exec.RequestID)
	log.Info("Execution started", map[string]interface{}{"async": exec.Async})

	o.mustTransition(log, exec, StateInputChecks)
	o.record(ctx, exec)

	input := exec.Input
	results, err := RunParallel(ctx, []Branch{
		{Name: "identity", Run: func(bctx context.Context) (any, error) {
			return o.identityBranch(bctx, input)
		}},
		{Name: "address", Run: func(bctx context.Context) (any, error) {
			return o.addressBranch(bctx, input)
		}},
	})
	if err != nil {
		o.finishFailed(ctx, log, exec, o.asWorkflowError(exec.RequestID, err))
		observability.EndSpan(span, err)
		return
	}

	identity := results[0].(*models.ExtractedIdentity)
	address := results[1].(*models.AddressCheckResult)
	exec.Identity = identity
	exec.Address = address

	user := o.merge(input, address)
	exec.User = &user
	o.mustTransition(log, exec, StateMerged)

	o.mustTransition(log, exec, StateCommitting)
	_, err = RunTask(ctx, o.runtime, o.policy(TaskCreateAccount), exec.RequestID, func(c context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Accounts.CreateAccount(c, user)
	})
	if err != nil {
		o.finishFailed(ctx, log, exec, o.asWorkflowError(exec.RequestID, err))
		observability.EndSpan(span, err)
		return
	}

	o.mustTransition(log, exec, StateNotifying)
	o.detach(ctx, func(dctx context.Context) {
		o.notifySuccess(dctx, log, user, input)
	})
	o.mustTransition(log, exec, StateSucceeded)

	o.complete(ctx, log, exec)
	observability.EndSpan(span, nil)
}

func (o *Orchestrator) identityBranch(ctx context.Context, input models.WorkflowInput) (*models.ExtractedIdentity, error) {
	requestID := input.RequestID

	identity, err := RunTask(ctx, o.runtime, o.policy(TaskExtractIdentity), requestID, func(c context.Context) (*models.ExtractedIdentity, error) {
		return o.deps.Extractor.ExtractIdentity(c, input.IDCardReference)
	})
	if err != nil {
		o.sendToDeadLetter(ctx, input, err)
		return nil, err
	}

	if _, err := RunTask(ctx, o.runtime, o.policy(TaskCrossCheckIdentity), requestID, func(c context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Verifier.CrossCheck(c, input, *identity)
	}); err != nil {
		return nil, err
	}

	if _, err := RunTask(ctx, o.runtime, o.policy(TaskCheckDuplicate), requestID, func(c context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Duplicates.CheckDuplicate(c, input.Firstname, input.Lastname)
	}); err != nil {
		return nil, err
	}

	return identity, nil
}

func (o *Orchestrator) addressBranch(ctx context.Context, input models.WorkflowInput) (*models.AddressCheckResult, error) {
	return RunTask(ctx, o.runtime, o.policy(TaskValidateAddress), input.RequestID, func(c context.Context) (*models.AddressCheckResult, error) {
		return o.deps.Addresses.ValidateAddress(c, input)
	})
}

func (o *Orchestrator) merge(input models.WorkflowInput, address *models.AddressCheckResult) models.ValidatedUser {
	return models.ValidatedUser{
		UserID:             o.newID(),
		RequestID:          input.RequestID,
		Firstname:          input.Firstname,
		Lastname:           input.Lastname,
		Birthdate:          input.Birthdate,
		CountryOfBirth:     input.CountryOfBirth,
		CountryOfResidence: input.CountryOfResidence,
		Street:             input.Street,
		PostalCode:         input.PostalCode,
		City:               input.City,
		NormalizedAddress:  address.NormalizedAddress,
		AddressScore:       address.ConfidenceScore,
		Email:              input.Email,
		IDCardReference:    input.IDCardReference,
		CreatedAt:          o.now(),
	}
}

// sendToDeadLetter is fire-and-forget: one attempt, failures only counted
// and logged.
func (o *Orchestrator) sendToDeadLetter(ctx context.Context, input models.WorkflowInput, cause error) {
	errorCause := cause.Error()
	if wfErr, ok := apperrors.AsWorkflowError(cause); ok {
		errorCause = wfErr.Cause
	}
	letter := models.DeadLetter{
		RequestID:       input.RequestID,
		IDCardReference: input.IDCardReference,
		ErrorCause:      errorCause,
		FailedAt:        o.now().Format(time.RFC3339),
	}

	o.detach(ctx, func(dctx context.Context) {
		_, err := RunTask(dctx, o.runtime, o.policy(TaskSendToDeadLetter), letter.RequestID, func(c context.Context) (struct{}, error) {
			return struct{}{}, o.deps.DeadLetters.SendToDeadLetter(c, letter)
		})
		if err != nil {
			metrics.DeadLetterErrors.Inc()
			logger.ForExecution(o.logger, letter.RequestID).Error("Failed to send to dead-letter sink", map[string]interface{}{
				"error":           err.Error(),
				"idCardReference": letter.IDCardReference,
			})
		}
	})
}

func (o *Orchestrator) notifySuccess(ctx context.Context, log logger.Logger, user models.ValidatedUser, input models.WorkflowInput) {
	var g errgroup.Group

	g.Go(func() error {
		_, err := RunTask(ctx, o.runtime, o.policy(TaskNotifyBackends), user.RequestID, func(c context.Context) (struct{}, error) {
			return struct{}{}, o.deps.Events.NotifyUserCreated(c, user)
		})
		if err != nil {
			metrics.NotificationFailures.WithLabelValues("event").Inc()
			log.Error("Failed to publish user created event", map[string]interface{}{"error": err.Error(), "userId": user.UserID})
		}
		return err
	})

	g.Go(func() error {
		notification := models.UserNotification{
			RequestID:          user.RequestID,
			CallerConnectionID: input.CallerConnectionID,
			Email:              user.Email,
			Firstname:          user.Firstname,
			Status:             string(models.StatusSucceeded),
			Message:            MessageRegistrationSucceeded,
			UserID:             user.UserID,
		}
		return o.notifyUser(ctx, log, notification)
	})

	_ = g.Wait()
}

func (o *Orchestrator) notifyUser(ctx context.Context, log logger.Logger, notification models.UserNotification) error {
	_, err := RunTask(ctx, o.runtime, o.policy(TaskNotifyUser), notification.RequestID, func(c context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Users.NotifyUser(c, notification)
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("user").Inc()
		log.Error("Failed to notify user", map[string]interface{}{"error": err.Error(), "status": notification.Status})
	}
	return err
}

func (o *Orchestrator) finishFailed(ctx context.Context, log logger.Logger, exec *Execution, wfErr *apperrors.WorkflowError) {
	if err := exec.fail(wfErr); err != nil {
		log.Error("Illegal failure transition", map[string]interface{}{"error": err.Error()})
		exec.Err = wfErr
		exec.State = StateInfrastructureFailed
		exec.FinishedAt = o.now()
	}

	log.Warn("Execution failed", map[string]interface{}{
		"state":      string(exec.State),
		"errorKind":  string(wfErr.Kind),
		"failedTask": wfErr.Task,
		"cause":      wfErr.Cause,
	})

	notification := models.UserNotification{
		RequestID:          exec.RequestID,
		CallerConnectionID: exec.Input.CallerConnectionID,
		Email:              exec.Input.Email,
		Firstname:          exec.Input.Firstname,
		Status:             string(models.StatusFailed),
		Message:            messageRegistrationFailed + wfErr.PublicCause(),
		ErrorKind:          string(wfErr.Kind),
	}
	o.detach(ctx, func(dctx context.Context) {
		_ = o.notifyUser(dctx, log, notification)
	})

	o.complete(ctx, log, exec)
}

func (o *Orchestrator) complete(ctx context.Context, log logger.Logger, exec *Execution) {
	duration := exec.Duration()
	metrics.ExecutionsTotal.WithLabelValues(string(exec.State)).Inc()
	metrics.ExecutionDuration.WithLabelValues(string(exec.Status())).Observe(duration.Seconds())
	o.obs.RecordExecution(ctx, string(exec.State), duration)
	o.record(ctx, exec)

	log.Info("Execution finished", map[string]interface{}{
		"state":      string(exec.State),
		"durationMs": duration.Milliseconds(),
	})
}

func (o *Orchestrator) record(ctx context.Context, exec *Execution) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Record(ctx, exec.Snapshot()); err != nil {
		logger.ForExecution(o.logger, exec.RequestID).Warn("Failed to record execution", map[string]interface{}{
			"error": err.Error(),
			"state": string(exec.State),
		})
	}
}

// detach runs fn outside the execution. The context keeps ctx values but not
// its cancellation.
func (o *Orchestrator) detach(ctx context.Context, fn func(ctx context.Context)) {
	o.detached.Add(1)
	go func() {
		defer o.detached.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("Detached task panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			}
		}()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.DetachedTimeout)
		defer cancel()
		fn(dctx)
	}()
}

func (o *Orchestrator) mustTransition(log logger.Logger, exec *Execution, to State) {
	if err := exec.transition(to); err != nil {
		log.Error("Illegal state transition", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) policy(name string) TaskOptions {
	if opts, ok := o.cfg.Policies[name]; ok {
		if opts.Name == "" {
			opts.Name = name
		}
		return opts
	}
	return TaskOptions{Name: name, Retry: RetryPolicy{MaxAttempts: 1}, FailureKind: apperrors.KindInfrastructure}
}

func (o *Orchestrator) asWorkflowError(requestID string, err error) *apperrors.WorkflowError {
	if wfErr, ok := apperrors.AsWorkflowError(err); ok {
		return wfErr
	}
	task := "orchestrator"
	var branchErr *BranchError
	if errors.As(err, &branchErr) {
		task = branchErr.Branch
	}
	return apperrors.NewWorkflowError(apperrors.KindInfrastructure, task, requestID, err)
}
