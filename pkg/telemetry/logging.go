// Package telemetry provides the structured logger every converter entry
// point and the shredcat CLI use to report progress and errors.
package telemetry

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.Logger configured the way shredcat runs it: JSON
// encoding for machine consumption in pipelines, ISO8601 timestamps, and
// short caller locations. development toggles a human-readable console
// encoder with stack traces on warn, for local debugging.
func NewLogger(development bool, level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: development,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if development {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// ConverterLogger reports the lifecycle of a single convert_* invocation:
// how many records were shredded, how long it took, and any error that
// stopped it short. It mirrors the start/complete/error phases a
// long-running conversion goes through without depending on a metrics
// backend, since spec-level conversion is synchronous and in-process.
type ConverterLogger struct {
	logger    *zap.Logger
	format    string
	startTime time.Time
}

// NewConverterLogger scopes logger to a single conversion of the given
// format ("avro", "arrow", "json", "protobuf").
func NewConverterLogger(logger *zap.Logger, format string) *ConverterLogger {
	return &ConverterLogger{
		logger: logger.With(zap.String("format", format)),
		format: format,
	}
}

// Start logs the beginning of a conversion.
func (c *ConverterLogger) Start() {
	c.startTime = time.Now()
	c.logger.Info("conversion started")
}

// Complete logs a successful conversion of recordCount records.
func (c *ConverterLogger) Complete(recordCount int) {
	c.logger.Info("conversion complete",
		zap.Int("records", recordCount),
		zap.Duration("elapsed", time.Since(c.startTime)),
	)
}

// Failed logs a conversion that stopped on err. Every conversion error in
// this system is fatal (spec §7): there is no partial-result recovery to
// log around, so this is always the terminal event for the conversion.
func (c *ConverterLogger) Failed(err error) {
	c.logger.Error("conversion failed",
		zap.Error(err),
		zap.Duration("elapsed", time.Since(c.startTime)),
	)
}
