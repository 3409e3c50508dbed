// Package obslog builds the process-wide structured logger and a small set
// of helpers for the field names the pipeline logs consistently
// (traceId, step, durationMs) so every component logs the same shape.
package obslog

import (
	"time"

	"go.uber.org/zap"
)

// New builds a zap logger from the production config, or from the
// development config when verbose is set. Call once at composition root.
func New(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than crash the process over
		// a logging misconfiguration.
		return zap.NewNop()
	}
	return logger
}

// Stage returns a child logger scoped to one pipeline stage boundary.
func Stage(base *zap.Logger, traceID, step string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("traceId", traceID), zap.String("step", step))
}

// Duration is a convenience field constructor matching the durationMs
// convention used across every stage-boundary log line.
func Duration(start time.Time) zap.Field {
	return zap.Int64("durationMs", time.Since(start).Milliseconds())
}
