package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointAtMissingConfigFile keeps Load from picking up a config.yaml lying
// around the working directory.
func pointAtMissingConfigFile(t *testing.T) {
	t.Helper()
	t.Setenv("SOLUNEX_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	pointAtMissingConfigFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Empty(t, cfg.Signing.Secret)
	assert.Empty(t, cfg.Store.SeedFile)
}

func TestLoadEnvOverrides(t *testing.T) {
	pointAtMissingConfigFile(t)
	t.Setenv("SOLUNEX_SERVER_PORT", "9090")
	t.Setenv("SOLUNEX_STORE_DRIVER", "redis")
	t.Setenv("SOLUNEX_STORE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SOLUNEX_SIGNING_SECRET", "env-secret")
	t.Setenv("SOLUNEX_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis.internal:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, "env-secret", cfg.Signing.Secret)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signing:
  secret: file-secret
store:
  seed_file: /var/lib/solunex/seed.yaml
`), 0o644))
	t.Setenv("SOLUNEX_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.Signing.Secret)
	assert.Equal(t, "/var/lib/solunex/seed.yaml", cfg.Store.SeedFile)
	// Defaults still apply where the file is silent.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signing:
  secret: file-secret
`), 0o644))
	t.Setenv("SOLUNEX_CONFIG_FILE", path)
	t.Setenv("SOLUNEX_SIGNING_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Signing.Secret)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SOLUNEX_SERVER_PORT", "70000"},
		{"unknown store driver", "SOLUNEX_STORE_DRIVER", "cassandra"},
		{"rate limit rps must be positive", "SOLUNEX_SECURITY_RATE_LIMIT_RPS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pointAtMissingConfigFile(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))
	t.Setenv("SOLUNEX_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}
