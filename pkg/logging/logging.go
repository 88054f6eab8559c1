// Package logging builds the zap loggers used across sasinspect.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production (JSON) logger writing to stderr at level.
// Recognised levels are debug, info, warn and error.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

// NewDevelopment returns a human readable console logger at level
func NewDevelopment(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// FromConfig picks the logger for format: json builds New, console builds
// NewDevelopment
func FromConfig(format, level string) (*zap.Logger, error) {
	switch format {
	case "", "json":
		return New(level)
	case "console":
		return NewDevelopment(level)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
