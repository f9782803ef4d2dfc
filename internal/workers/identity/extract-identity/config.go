package extractidentity

import "account-onboarding/internal/common/config"

type Config struct {
	// Bucket holds uploaded ID documents; references without an s3:// prefix
	// are keys in it.
	Bucket string
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{Bucket: appCfg.Integrations.AWS.UploadBucket}
}
