package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 5*time.Second, cfg.CollaboratorTimeout)
	assert.Equal(t, 20, cfg.TasksLimit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "none", cfg.Backplane.Driver)
	assert.Equal(t, 30, cfg.RateLimit.Events)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
mode: debug
port: 9090
jwt:
  secret: s3cret
  issuer: aurora
backplane:
  driver: redis
  redis_addr: cache:6379
allowed_origins:
  - https://app.example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "aurora", cfg.JWT.Issuer)
	assert.Equal(t, "redis", cfg.Backplane.Driver)
	assert.Equal(t, "cache:6379", cfg.Backplane.RedisAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "port: 9090\n")
	t.Setenv("AURORA_PORT", "7070")
	t.Setenv("AURORA_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoad_RejectsUnknownDrivers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "store", body: "store:\n  driver: postgres\n"},
		{name: "backplane", body: "backplane:\n  driver: kafka\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
