package validateaddress

import (
	"time"

	"account-onboarding/internal/common/config"
)

type Config struct {
	BaseURL string
	// Threshold is exclusive: a score must be strictly greater to pass.
	Threshold float64
	Timeout   time.Duration
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{
		BaseURL:   appCfg.APIs.Geocoding.BaseURL,
		Threshold: appCfg.Workflow.AddressConfidenceThreshold,
		Timeout:   config.GetDuration(appCfg.APIs.Geocoding.Timeout),
	}
}
