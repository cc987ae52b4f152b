// Package config loads the command line runner configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const prefix = "ETL"

// Config holds the runner configuration. Every field is read from an ETL_
// prefixed variable, e.g. ETL_BUFFER_SIZE.
type Config struct {
	// Definition is the YAML pipeline definition to run.
	Definition  string        `envconfig:"DEFINITION"`
	DrawFile    string        `envconfig:"DRAW_FILE"`
	MetricsAddr string        `envconfig:"METRICS_ADDR"`
	Logging     LogConfig     `envconfig:"LOG"`
	BufferSize  int           `envconfig:"BUFFER_SIZE" default:"1"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	err := envconfig.Process(prefix, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if cfg.BufferSize < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "buffer size must be positive, got %d", cfg.BufferSize)
	}

	if cfg.Timeout < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "timeout must not be negative, got %s", cfg.Timeout)
	}

	return &cfg, nil
}

// Usage prints the variables Load reads.
func Usage() error {
	return errors.Wrap(envconfig.Usage(prefix, &Config{}), "unable to print usage")
}
