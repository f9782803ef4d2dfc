package sendtodlq

import "account-onboarding/internal/common/config"

type Config struct {
	RedisKey string
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{RedisKey: appCfg.DeadLetter.RedisKey}
}
