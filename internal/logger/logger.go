// Package logger builds the zap loggers used across bloop.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger for mode ("dev" or "prod"). Logs go to
// stderr so they never interleave with answers printed on stdout. level
// may be empty, in which case dev logs at debug and prod at info.
func New(mode, level string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Redact masks secrets before they reach a log line. Anything shorter
// than eight characters is masked entirely.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "[REDACTED]"
	}
	return secret[:4] + "..." + "[REDACTED]"
}
