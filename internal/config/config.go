// Package config loads service configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds service configuration. Every key is read from the environment
// under its STELLAR_ name; a .env file in the working directory supplies
// values the environment leaves unset.
type Config struct {
	// HTTPAddr is the listen address (e.g. :8080).
	HTTPAddr string `mapstructure:"STELLAR_HTTP_ADDR"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"STELLAR_LOG_LEVEL"`

	AuthEnabled bool   `mapstructure:"STELLAR_AUTH_ENABLED"`
	AuthToken   string `mapstructure:"STELLAR_AUTH_TOKEN"`
	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `mapstructure:"STELLAR_TRUST_PROXY"`

	// RandomSeed fixes the generator stream when non-zero.
	RandomSeed uint64 `mapstructure:"STELLAR_RANDOM_SEED"`
	// MaxResidualSamples caps n on /api/v1/residuals.
	MaxResidualSamples int `mapstructure:"STELLAR_MAX_RESIDUAL_SAMPLES"`

	StreamMaxConcurrent int `mapstructure:"STELLAR_STREAM_MAX_CONCURRENT"`
	// StreamKeepaliveSeconds and StreamMinIntervalSeconds are whole seconds.
	StreamKeepaliveSeconds   int `mapstructure:"STELLAR_STREAM_KEEPALIVE_INTERVAL"`
	StreamMinIntervalSeconds int `mapstructure:"STELLAR_STREAM_MIN_INTERVAL"`
}

// Load reads .env (if present) from the working directory, then the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("STELLAR_HTTP_ADDR", ":8080")
	v.SetDefault("STELLAR_LOG_LEVEL", "info")
	v.SetDefault("STELLAR_AUTH_ENABLED", false)
	v.SetDefault("STELLAR_AUTH_TOKEN", "")
	v.SetDefault("STELLAR_TRUST_PROXY", false)
	v.SetDefault("STELLAR_RANDOM_SEED", 0)
	v.SetDefault("STELLAR_MAX_RESIDUAL_SAMPLES", 10000)
	v.SetDefault("STELLAR_STREAM_MAX_CONCURRENT", 10)
	v.SetDefault("STELLAR_STREAM_KEEPALIVE_INTERVAL", 30)
	v.SetDefault("STELLAR_STREAM_MIN_INTERVAL", 1)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: STELLAR_HTTP_ADDR must be set")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.AuthEnabled && c.AuthToken == "" {
		return errors.New("config: STELLAR_AUTH_TOKEN is required when auth is enabled")
	}
	if c.MaxResidualSamples < 1 {
		return errors.New("config: STELLAR_MAX_RESIDUAL_SAMPLES must be at least 1")
	}
	if c.StreamMaxConcurrent < 1 {
		return errors.New("config: STELLAR_STREAM_MAX_CONCURRENT must be at least 1")
	}
	if c.StreamKeepaliveSeconds < 1 {
		return errors.New("config: STELLAR_STREAM_KEEPALIVE_INTERVAL must be at least 1")
	}
	if c.StreamMinIntervalSeconds < 1 || c.StreamMinIntervalSeconds > 60 {
		return errors.New("config: STELLAR_STREAM_MIN_INTERVAL must be between 1 and 60")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: STELLAR_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func (c *Config) StreamKeepalive() time.Duration {
	return time.Duration(c.StreamKeepaliveSeconds) * time.Second
}

func (c *Config) StreamMinInterval() time.Duration {
	return time.Duration(c.StreamMinIntervalSeconds) * time.Second
}
