package startaccountcreation

import (
	"time"

	"account-onboarding/internal/common/config"
)

type Config struct {
	MaxJobsActive int
	// Timeout is the job lease handed to the broker.
	Timeout time.Duration
	// CommandTimeout bounds the complete and throw-error commands only.
	CommandTimeout time.Duration
}

func LoadConfig(appCfg *config.Config) *Config {
	timeout := time.Duration(appCfg.Camunda.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	maxJobs := appCfg.Camunda.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 10
	}
	commandTimeout := time.Duration(appCfg.Camunda.RequestTimeout) * time.Millisecond
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}
	return &Config{MaxJobsActive: maxJobs, Timeout: timeout, CommandTimeout: commandTimeout}
}
