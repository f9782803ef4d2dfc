package notifybackends

import "account-onboarding/internal/common/config"

type Config struct {
	SNSEnabled   bool
	TopicARN     string
	KafkaEnabled bool
	KafkaTopic   string
}

func LoadConfig(appCfg *config.Config) *Config {
	return &Config{
		SNSEnabled:   appCfg.Integrations.AWS.SNS.Enabled,
		TopicARN:     appCfg.Integrations.AWS.SNS.TopicARN,
		KafkaEnabled: appCfg.Integrations.Kafka.Enabled,
		KafkaTopic:   appCfg.Integrations.Kafka.Topic,
	}
}
