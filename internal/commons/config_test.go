package commons

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("GATEWAY_KEY_SECRET", "gw-secret")
	t.Setenv("TRANSFER_TOKEN_SECRET", "transfer-secret")
	t.Setenv("SESSION_SECRET", "session-secret")
}

func TestLoadConfig_EnvironmentOnly(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("TRANSFER_TOKEN_TTL", "90s")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Storage.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Transfer.TokenTTL)
	assert.Equal(t, "INR", cfg.Gateway.Currency)
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  driver: memory
transfer:
  tokenTtl: 45s
`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 45*time.Second, cfg.Transfer.TokenTTL)
	assert.Equal(t, "gw-secret", cfg.Gateway.KeySecret)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadConfig_RejectsMissingSecretsAndBadDriver(t *testing.T) {
	t.Setenv("GATEWAY_KEY_SECRET", "")
	t.Setenv("TRANSFER_TOKEN_SECRET", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := LoadConfig("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage driver")
	assert.Contains(t, err.Error(), "gateway key secret")
	assert.Contains(t, err.Error(), "transfer token secret")
	assert.Contains(t, err.Error(), "session secret")
}
