package executionstore

import (
	"time"

	"account-onboarding/internal/common/config"
)

type Config struct {
	KeyPrefix      string
	TTL            time.Duration
	ArchiveEnabled bool
	ArchiveIndex   string
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{
		KeyPrefix:      appCfg.Executions.KeyPrefix,
		TTL:            time.Duration(appCfg.Executions.TTL) * time.Second,
		ArchiveEnabled: appCfg.Database.Elasticsearch.Enabled,
		ArchiveIndex:   appCfg.Database.Elasticsearch.ArchiveIndex,
	}
}
