package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// IPC send disciplines. One is chosen per system.
const (
	DisciplineBlock = "block"
	DisciplineRetry = "retry"
)

// Config holds all application configuration.
type Config struct {
	Kernel    KernelConfig
	IPC       IPCConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Logging   LogConfig
}

// KernelConfig sizes the simulated kernel.
type KernelConfig struct {
	MaxEnvs   int `envconfig:"KERNEL_MAX_ENVS" default:"1024"`
	MaxFrames int `envconfig:"KERNEL_MAX_FRAMES" default:"16384"`
}

// IPCConfig selects how senders wait for a receiver.
type IPCConfig struct {
	Discipline string `envconfig:"IPC_DISCIPLINE" default:"block"`
}

// ServerConfig holds the inspection HTTP server configuration.
type ServerConfig struct {
	Enabled bool   `envconfig:"SERVER_ENABLED" default:"false"`
	Port    string `envconfig:"PORT" default:"8000"`
	Host    string `envconfig:"HOST" default:"127.0.0.1"`
	// CORSOrigins is a comma separated list in the environment.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// RateLimitConfig bounds per-client request rates on the server.
type RateLimitConfig struct {
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			MaxEnvs:   1024,
			MaxFrames: 16384,
		},
		IPC: IPCConfig{
			Discipline: DisciplineBlock,
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    "8000",
			Host:    "127.0.0.1",

			CORSOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate rejects values the kernel cannot run with.
func (c *Config) Validate() error {
	if c.Kernel.MaxEnvs <= 0 || c.Kernel.MaxEnvs > 1024 {
		return fmt.Errorf("invalid KERNEL_MAX_ENVS %d: must be in [1, 1024]", c.Kernel.MaxEnvs)
	}
	if c.Kernel.MaxFrames <= 0 {
		return fmt.Errorf("invalid KERNEL_MAX_FRAMES %d", c.Kernel.MaxFrames)
	}
	switch c.IPC.Discipline {
	case DisciplineBlock, DisciplineRetry:
	default:
		return fmt.Errorf("invalid IPC_DISCIPLINE %q: want %q or %q",
			c.IPC.Discipline, DisciplineBlock, DisciplineRetry)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit %d/s burst %d: both must be positive",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	return nil
}
