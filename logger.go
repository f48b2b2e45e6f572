package corestore

import (
	"log/slog"

	"go.uber.org/zap"
)

// Logger is the structured logging interface used throughout the store's
// dispatch engine, worker pool, and autorun machinery. Its shape is
// slog-compatible, so applications already using log/slog, zap, or logrus
// can adapt their existing logger with a thin wrapper.
//
// Example using log/slog directly:
//
//	logger := corestore.NewSlogLogger(slog.Default())
//	store, err := corestore.New(reducer, corestore.WithLogger(logger))
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}

// NewNoopLogger returns a Logger that discards everything, used as the
// default when a Store is constructed without WithLogger.
func NewNoopLogger() Logger { return noopLogger{} }

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a standard library structured logger.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }

// zapLogger adapts a *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger, exercising zap's key-value sugared API
// the same way the rest of the key-value Logger interface expects.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l.Sugar()}
}

func (z *zapLogger) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }
func (z *zapLogger) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
