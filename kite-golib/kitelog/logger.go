package kitelog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Basic is the process-wide logger. It writes JSON lines with RFC3339 timestamps
// and caller information, sending error level and above to stderr and the rest to stdout.
var Basic = New(zapcore.InfoLevel)

// New builds a logger that discards entries below min
func New(min zapcore.Level) *zap.SugaredLogger {
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel && lvl >= min
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl < zapcore.ErrorLevel && lvl >= min
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), isErrorLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), isInfoLevel),
	)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// ParseLevel maps names like "debug" or "WARN" to a level; unknown names map to info
func ParseLevel(name string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// SetLevel replaces Basic with a logger at the given level
func SetLevel(lvl zapcore.Level) {
	Basic = New(lvl)
}

// OrBasic returns l, or Basic if l is nil
func OrBasic(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Basic
	}
	return l
}
