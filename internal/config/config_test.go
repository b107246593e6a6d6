package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

simulation:
  seed: 42
  model_minute_ms: 500
  mean_open_delay_minutes: 12
  reconcile_interval_seconds: 15

redis:
  url: "redis://localhost:6379/0"
  channel: "custom:events"

logging:
  level: "debug"
  redact_pii: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 500, cfg.Simulation.ModelMinuteMS)
	assert.Equal(t, 500*time.Millisecond, cfg.Simulation.ModelMinute())
	assert.Equal(t, 12.0, cfg.Simulation.MeanOpenDelayMinutes)
	assert.Equal(t, 15, cfg.Simulation.ReconcileIntervalSeconds)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "custom:events", cfg.Redis.Channel)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.RedactPII)

	// Unspecified fields fall back to defaults.
	assert.Equal(t, 6.0, cfg.Simulation.MeanClickDelayMinutes)
	assert.Equal(t, 4.0, cfg.Simulation.MeanReportDelayMinutes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Zero(t, cfg.Simulation.Seed)
	assert.Equal(t, time.Second, cfg.Simulation.ModelMinute())
	assert.Equal(t, 10.0, cfg.Simulation.MeanOpenDelayMinutes)
	assert.Equal(t, 30, cfg.Simulation.ReconcileIntervalSeconds)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "phishsim:events", cfg.Redis.Channel)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("SIM_SEED", "777")
	t.Setenv("SIM_MODEL_MINUTE_MS", "250")
	t.Setenv("REDIS_URL", "redis://example:6379")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_REDACT_PII", "true")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, int64(777), cfg.Simulation.Seed)
	assert.Equal(t, 250, cfg.Simulation.ModelMinuteMS)
	assert.Equal(t, "redis://example:6379", cfg.Redis.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Logging.RedactPII)
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SIM_MODEL_MINUTE_MS", "-5")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Simulation.ModelMinuteMS)
}
