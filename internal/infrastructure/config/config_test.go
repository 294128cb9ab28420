package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Kernel config
	assert.Equal(t, 1024, cfg.Kernel.MaxEnvs)
	assert.Equal(t, 16384, cfg.Kernel.MaxFrames)

	// IPC config
	assert.Equal(t, DisciplineBlock, cfg.IPC.Discipline)

	// Server config
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	// Rate limit config
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"KERNEL_MAX_ENVS":   "64",
		"KERNEL_MAX_FRAMES": "512",
		"IPC_DISCIPLINE":    "retry",
		"SERVER_ENABLED":    "true",
		"PORT":              "9000",
		"HOST":              "0.0.0.0",
		"CORS_ORIGINS":      "http://a.test,http://b.test",
		"RATE_LIMIT_RPS":    "5",
		"RATE_LIMIT_BURST":  "10",
		"LOG_LEVEL":         "debug",
		"LOG_DEV":           "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Kernel.MaxEnvs)
	assert.Equal(t, 512, cfg.Kernel.MaxFrames)
	assert.Equal(t, DisciplineRetry, cfg.IPC.Discipline)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown discipline", key: "IPC_DISCIPLINE", value: "spin"},
		{name: "too many envs", key: "KERNEL_MAX_ENVS", value: "4096"},
		{name: "zero envs", key: "KERNEL_MAX_ENVS", value: "0"},
		{name: "no frames", key: "KERNEL_MAX_FRAMES", value: "0"},
		{name: "not a number", key: "KERNEL_MAX_FRAMES", value: "lots"},
		{name: "zero rate", key: "RATE_LIMIT_RPS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}
