// Package config defines the configuration shredcat and library callers use
// to tune the read-side buffering and logging of a conversion. Unlike
// nebula's BaseConfig, this system has no connector lifecycle, retries, or
// network reliability settings to configure: a convert_* call is a single
// synchronous pass over a byte source, so the surface area here covers only
// what that pass actually reads.
package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration for a shredding run.
type Config struct {
	// IO controls how bytes are read off the underlying source.
	IO IOConfig `yaml:"io" json:"io"`

	// Logging controls the structured logger's verbosity and format.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Filter is an optional column projection applied before conversion.
	// A nil Columns list means no filter: every column is included.
	Filter FilterConfig `yaml:"filter" json:"filter"`
}

// IOConfig tunes ByteSource buffering (pkg/bytesource).
type IOConfig struct {
	// BufferSize is the minimum read-ahead buffer size in bytes.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// LoggingConfig tunes pkg/telemetry.NewLogger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// FilterConfig lists dotted column paths to include (e.g. "user.address.city").
// An empty list disables filtering.
type FilterConfig struct {
	Columns []string `yaml:"columns" json:"columns"`
}

// Default returns the configuration shredcat runs with when no config file
// is supplied.
func Default() *Config {
	return &Config{
		IO:      IOConfig{BufferSize: 64 * 1024},
		Logging: LoggingConfig{Level: "info", Development: false},
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.IO.BufferSize <= 0 {
		return fmt.Errorf("io.buffer_size must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
