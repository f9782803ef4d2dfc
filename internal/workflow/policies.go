package workflow

import (
	"time"

	"account-onboarding/internal/common/config"
	apperrors "account-onboarding/internal/common/errors"
)

const (
	TaskExtractIdentity    = "extract-identity"
	TaskCrossCheckIdentity = "crosscheck-identity"
	TaskCheckDuplicate     = "check-duplicate-user"
	TaskValidateAddress    = "validate-address"
	TaskCreateAccount      = "create-account"
	TaskNotifyBackends     = "notify-backends"
	TaskNotifyUser         = "notify-user"
	TaskSendToDeadLetter   = "send-to-dlq"
)

func DefaultPolicies() map[string]TaskOptions {
	return map[string]TaskOptions{
		TaskExtractIdentity: {
			Name:        TaskExtractIdentity,
			Timeout:     15 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 3, InitialInterval: time.Second, BackoffCoefficient: 2, MaxInterval: 8 * time.Second},
			FailureKind: apperrors.KindIdentityExtraction,
		},
		TaskCrossCheckIdentity: {
			Name:        TaskCrossCheckIdentity,
			Timeout:     time.Second,
			Retry:       RetryPolicy{MaxAttempts: 1},
			FailureKind: apperrors.KindInfrastructure,
		},
		TaskCheckDuplicate: {
			Name:        TaskCheckDuplicate,
			Timeout:     3 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond, BackoffCoefficient: 2, MaxInterval: 2 * time.Second},
			FailureKind: apperrors.KindInfrastructure,
		},
		TaskValidateAddress: {
			Name:        TaskValidateAddress,
			Timeout:     5 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond, BackoffCoefficient: 2, MaxInterval: 4 * time.Second},
			FailureKind: apperrors.KindAddressInvalid,
		},
		TaskCreateAccount: {
			Name:        TaskCreateAccount,
			Timeout:     5 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 1},
			FailureKind: apperrors.KindInfrastructure,
		},
		TaskNotifyBackends: {
			Name:        TaskNotifyBackends,
			Timeout:     5 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond, BackoffCoefficient: 2, MaxInterval: 2 * time.Second},
			FailureKind: apperrors.KindInfrastructure,
		},
		TaskNotifyUser: {
			Name:        TaskNotifyUser,
			Timeout:     5 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 2, InitialInterval: 200 * time.Millisecond, BackoffCoefficient: 2, MaxInterval: time.Second},
			FailureKind: apperrors.KindInfrastructure,
		},
		TaskSendToDeadLetter: {
			Name:        TaskSendToDeadLetter,
			Timeout:     3 * time.Second,
			Retry:       RetryPolicy{MaxAttempts: 1},
			FailureKind: apperrors.KindInfrastructure,
		},
	}
}

// PoliciesFromConfig overlays configured timeouts and retry settings on the
// defaults. The account commit and the dead-letter write stay single-attempt.
func PoliciesFromConfig(cfg *config.Config) map[string]TaskOptions {
	policies := DefaultPolicies()
	for name, opts := range policies {
		taskCfg, ok := config.GetTaskConfig(cfg, name)
		if !ok {
			continue
		}
		if taskCfg.Timeout > 0 {
			opts.Timeout = config.GetDuration(taskCfg.Timeout)
		}
		if taskCfg.MaxAttempts > 0 {
			opts.Retry.MaxAttempts = taskCfg.MaxAttempts
		}
		if taskCfg.InitialBackoff > 0 {
			opts.Retry.InitialInterval = config.GetDuration(taskCfg.InitialBackoff)
		}
		if taskCfg.BackoffCoefficient > 0 {
			opts.Retry.BackoffCoefficient = taskCfg.BackoffCoefficient
		}
		if taskCfg.MaxBackoff > 0 {
			opts.Retry.MaxInterval = config.GetDuration(taskCfg.MaxBackoff)
		}
		policies[name] = opts
	}

	for _, name := range []string{TaskCreateAccount, TaskSendToDeadLetter} {
		opts := policies[name]
		opts.Retry.MaxAttempts = 1
		policies[name] = opts
	}
	return policies
}
