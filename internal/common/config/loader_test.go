package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Test Helper Functions =====

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: db
    database: onboarding
    user: svc
  redis:
    address: redis:6379
integrations:
  aws:
    upload_bucket: uploads
`

// ===== Tests =====

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddressConfidenceThreshold, cfg.Workflow.AddressConfidenceThreshold)
	assert.Equal(t, DefaultGeocodingBaseURL, cfg.APIs.Geocoding.BaseURL)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "onboarding:dlq:identity-extraction", cfg.DeadLetter.RedisKey)
	assert.Equal(t, "account-onboarding", cfg.Integrations.Kafka.ClientID)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_TaskPolicies(t *testing.T) {
	body := minimalConfig + `
workflow:
  address_confidence_threshold: 0.9
  tasks:
    validate-address:
      timeout: 2500
      max_attempts: 4
      initial_backoff: 100
      backoff_coefficient: 2
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Workflow.AddressConfidenceThreshold)

	task, ok := GetTaskConfig(cfg, "validate-address")
	require.True(t, ok)
	assert.Equal(t, 2500, task.Timeout)
	assert.Equal(t, 4, task.MaxAttempts)
	assert.Equal(t, GetDuration(100), GetDuration(task.InitialBackoff))

	_, ok = GetTaskConfig(cfg, "create-account")
	assert.False(t, ok)
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("ONBOARDING_TEST_BUCKET", "from-env")
	body := `
database:
  postgres:
    host: db
    database: onboarding
    user: svc
  redis:
    address: redis:6379
integrations:
  aws:
    upload_bucket: ${ONBOARDING_TEST_BUCKET}
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Integrations.AWS.UploadBucket)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name: "threshold out of range",
			extra: `
workflow:
  address_confidence_threshold: 1.5
`,
			wantErr: "address_confidence_threshold",
		},
		{
			name: "backoff coefficient below one",
			extra: `
workflow:
  tasks:
    notify-backends:
      backoff_coefficient: 0.5
`,
			wantErr: "backoff_coefficient",
		},
		{
			name: "camunda without broker",
			extra: `
camunda:
  enabled: true
`,
			wantErr: "broker_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, minimalConfig+tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_SNSRequiresTopic(t *testing.T) {
	t.Setenv("EVENT_TOPIC_ARN", "")
	body := `
database:
  postgres:
    host: db
    database: onboarding
    user: svc
  redis:
    address: redis:6379
integrations:
  aws:
    upload_bucket: uploads
    sns:
      enabled: true
`
	_, err := LoadFromFile(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic_arn")
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "h", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=d sslmode=require", p.GetDSN())
}
