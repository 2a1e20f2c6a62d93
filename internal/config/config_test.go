package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: "9000"
postgres_url: postgres://file-url/marketplace?sslmode=disable
redis_addr: redis-from-file:6379
kafka_brokers:
  - broker-1:9092
  - broker-2:9092
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PORT", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_ADDR", "redis-from-env:6379")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("CURRENCY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://file-url/marketplace?sslmode=disable", cfg.PostgresURL)
	assert.Equal(t, "redis-from-env:6379", cfg.RedisAddr, "env var must win over file")
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "MRU", cfg.Currency)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("POSTGRES_URL", "postgres://env-url/marketplace")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CURRENCY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_MissingPostgresURL(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")

	_, err := Load("")
	assert.Error(t, err)
}
