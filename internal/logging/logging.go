// Package logging wraps go.uber.org/zap behind the two call-site helpers
// used throughout this repository: Msg for leveled operator-facing messages
// and Trace for tagged, high-volume diagnostic output gated by verbosity.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.SugaredLogger

// Init builds the process-wide logger at the given verbosity (0 = Info and
// above, 1 = Debug, 2+ = Debug with caller info).
func Init(verbosity int) error {
	cfg := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if verbosity > 0 {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = verbosity < 2
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	base = logger.Sugar()
	return nil
}

func logger() *zap.SugaredLogger {
	if base == nil {
		l, _ := zap.NewDevelopment()
		base = l.Sugar()
	}
	return base
}

// Msg logs an operator-facing message at the given zap level.
func Msg(level zapcore.Level, template string, args ...any) {
	l := logger()
	switch level {
	case zapcore.DebugLevel:
		l.Debugf(template, args...)
	case zapcore.WarnLevel:
		l.Warnf(template, args...)
	case zapcore.ErrorLevel:
		l.Errorf(template, args...)
	default:
		l.Infof(template, args...)
	}
}

// Trace logs a tagged diagnostic line at Debug level, used for the
// high-volume per-obligation/per-frame output the engine can emit while
// searching.
func Trace(tag string, template string, args ...any) {
	logger().Debugf("["+tag+"] "+template, args...)
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
