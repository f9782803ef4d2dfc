package config

import "fmt"

type Config struct {
	App          AppConfig            `mapstructure:"app"`
	Camunda      CamundaConfig        `mapstructure:"camunda"`
	HTTP         HTTPConfig           `mapstructure:"http"`
	Database     DatabaseConfig       `mapstructure:"database"`
	Workflow     WorkflowConfig       `mapstructure:"workflow"`
	Integrations IntegrationConfig    `mapstructure:"integrations"`
	APIs         APIsConfig           `mapstructure:"apis"`
	DeadLetter   DeadLetterConfig     `mapstructure:"deadletter"`
	Executions   ExecutionStoreConfig `mapstructure:"executions"`
	Logging      LoggingConfig        `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ArchiveIndex string   `mapstructure:"archive_index"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// WorkflowConfig carries the tunables of the onboarding saga.
type WorkflowConfig struct {
	AddressConfidenceThreshold float64               `mapstructure:"address_confidence_threshold"`
	Tasks                      map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig is the per-task timeout and retry policy. Durations are
// milliseconds. MaxAttempts counts the first attempt.
type TaskConfig struct {
	Timeout            int     `mapstructure:"timeout"`
	MaxAttempts        int     `mapstructure:"max_attempts"`
	InitialBackoff     int     `mapstructure:"initial_backoff"`
	BackoffCoefficient float64 `mapstructure:"backoff_coefficient"`
	MaxBackoff         int     `mapstructure:"max_backoff"`
}

type IntegrationConfig struct {
	AWS struct {
		Region       string `mapstructure:"region"`
		UploadBucket string `mapstructure:"upload_bucket"`
		SES          struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	Kafka struct {
		Enabled  bool     `mapstructure:"enabled"`
		Brokers  []string `mapstructure:"brokers"`
		Topic    string   `mapstructure:"topic"`
		ClientID string   `mapstructure:"client_id"`
	} `mapstructure:"kafka"`
}

type APIsConfig struct {
	Geocoding struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"geocoding"`
}

type DeadLetterConfig struct {
	RedisKey string `mapstructure:"redis_key"`
}

type ExecutionStoreConfig struct {
	KeyPrefix     string `mapstructure:"key_prefix"`
	TTL           int    `mapstructure:"ttl"` // seconds
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
