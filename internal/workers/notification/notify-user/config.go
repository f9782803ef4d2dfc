package notifyuser

import "account-onboarding/internal/common/config"

type Config struct {
	ChannelPrefix string
	EmailEnabled  bool
	FromEmail     string
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{
		ChannelPrefix: appCfg.Executions.ChannelPrefix,
		EmailEnabled:  appCfg.Integrations.AWS.SES.Enabled,
		FromEmail:     appCfg.Integrations.AWS.SES.FromEmail,
	}
}
