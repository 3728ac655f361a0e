// Package logger adapts zap to the LoggerPort used across the
// application.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentlab/internal/application/port/output"
)

var _ output.LoggerPort = (*ZapAdapter)(nil)

type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// New builds a production JSON logger. Debug toggles the level.
func New(debug bool) (*ZapAdapter, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &ZapAdapter{sugar: l.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *ZapAdapter {
	return &ZapAdapter{sugar: zap.NewNop().Sugar()}
}

func (z *ZapAdapter) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *ZapAdapter) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *ZapAdapter) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *ZapAdapter) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

func (z *ZapAdapter) WithField(key string, value any) output.LoggerPort {
	return &ZapAdapter{sugar: z.sugar.With(key, value)}
}

func (z *ZapAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapAdapter{sugar: z.sugar.With(args...)}
}

func (z *ZapAdapter) Close() error {
	// Sync fails on stderr in most environments; the error carries no
	// signal worth propagating.
	_ = z.sugar.Sync()
	return nil
}
