package ui

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Debug bool

	s *zap.SugaredLogger
}

// NewLogger writes console-encoded logs to stderr so stdout stays free for
// report output that CI steps capture.
func NewLogger(debug bool) *Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)

	return &Logger{Debug: debug, s: zap.New(core).Sugar()}
}

// NewNopLogger discards everything. Used by tests and library callers that
// do not care about logs.
func NewNopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// NewLoggerFromZap wraps an existing zap logger.
func NewLoggerFromZap(z *zap.Logger, debug bool) *Logger {
	return &Logger{Debug: debug, s: z.Sugar()}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		l.s.Debugf(trim(format), args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.s.Infof(trim(format), args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.s.Warnf(trim(format), args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.s.Errorf(trim(format), args...)
}

// With returns a child logger carrying structured fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Debug: l.Debug, s: l.s.With(args...)}
}

func (l *Logger) Sync() {
	_ = l.s.Sync()
}

// zap terminates every entry itself
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}
