package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "./analytics-data", cfg.Storage.DataDir)
	assert.Equal(t, "visitor-data.json", cfg.Storage.DataFile)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxBodyBytes)
	assert.False(t, cfg.ClickHouse.Enabled())
	assert.False(t, cfg.Auth.Enabled())
	assert.Zero(t, cfg.Ingest.RateLimit)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.yaml")
	yamlDoc := `
port: "4000"
storage:
  data_dir: /var/lib/analytics
ingest:
  rate_limit: 5
  rate_burst: 10
clickhouse:
  host: ch.internal
  database: analytics
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("PORT", "5000")
	t.Setenv("CLICKHOUSE_NATIVE_PORT", "9440")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "/var/lib/analytics", cfg.Storage.DataDir)
	assert.Equal(t, "visitor-data.json", cfg.Storage.DataFile)
	assert.Equal(t, 5.0, cfg.Ingest.RateLimit)
	assert.Equal(t, 10, cfg.Ingest.RateBurst)
	assert.True(t, cfg.ClickHouse.Enabled())
	assert.Equal(t, 9440, cfg.ClickHouse.Port)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	for _, key := range []string{"CLICKHOUSE_NATIVE_PORT", "MAX_BODY_BYTES", "INGEST_RATE_LIMIT", "INGEST_RATE_BURST"} {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(envFrom(map[string]string{key: "not-a-number"}))
			assert.Error(t, err)
		})
	}
}

func TestAuthEnabledFromEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envFrom(map[string]string{"AUTH_DEFAULT": "secret-key"})))
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTrustedProxiesAndOperatorFromEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envFrom(map[string]string{
		"TRUSTED_PROXIES":   " 10.0.0.1, 10.0.0.0/8 ,",
		"OPERATOR_EMAIL":    "ops@example.com",
		"OPERATOR_PASSWORD": "s3cret-pass",
	})))
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.TrustedProxies)
	assert.Equal(t, "ops@example.com", cfg.Auth.OperatorEmail)
	assert.Equal(t, "s3cret-pass", cfg.Auth.OperatorPassword)
}
