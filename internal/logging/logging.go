// Package logging builds the shared zap logger for Questline.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a production zap logger. Debug mode lowers the level and
// switches to the console encoder for local development.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// NewNop returns a no-op logger, used in tests and as a safe default when
// callers pass a nil logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
