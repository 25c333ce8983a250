// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Addr      string `env:"BB84_ADDR" envDefault:":8080"`
	LogLevel  string `env:"BB84_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"BB84_LOG_PRETTY" envDefault:"true"`

	// DetectionThreshold is the QBER above which a run reports an
	// eavesdropper. It is a heuristic knob, not a protocol constant.
	DetectionThreshold float64 `env:"BB84_DETECTION_THRESHOLD" envDefault:"0.15"`
	MaxMessageBytes    int     `env:"BB84_MAX_MESSAGE_BYTES" envDefault:"4096"`
	MaxBits            int     `env:"BB84_MAX_BITS" envDefault:"65536"`

	// Seed makes the server's randomness reproducible. Zero seeds from the
	// OS entropy pool.
	Seed int64 `env:"BB84_SEED" envDefault:"0"`

	ReadTimeout  time.Duration `env:"BB84_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"BB84_WRITE_TIMEOUT" envDefault:"15s"`
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("BB84_ADDR is required")
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		return fmt.Errorf("BB84_DETECTION_THRESHOLD must lie in [0, 1], got %v", c.DetectionThreshold)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("BB84_MAX_MESSAGE_BYTES must be positive, got %d", c.MaxMessageBytes)
	}
	if c.MaxBits <= 0 {
		return fmt.Errorf("BB84_MAX_BITS must be positive, got %d", c.MaxBits)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
