// Package logger holds the process-wide diagnostic logger.
//
// Library code takes a *zap.Logger through its options and falls back to L().
// The CLI replaces the default with SetLogger once flags are parsed.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	std = mustNew("info", "console", os.Stderr)
)

// New creates a logger writing to w.
// level is one of debug, info, warn, error. format is console or json.
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("logger: invalid level %q", level)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		NameKey:     "logger",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("logger: invalid format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}

func mustNew(level, format string, w io.Writer) *zap.Logger {
	l, err := New(level, format, w)
	if err != nil {
		panic(err)
	}
	return l
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	std = l
	mu.Unlock()
}

// L returns the process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

func sugar() *zap.SugaredLogger {
	return L().Sugar()
}

// Printf logs at info level.
func Printf(format string, args ...interface{}) {
	sugar().Infof(format, args...)
}

// Sync flushes any buffered entries of the process-wide logger.
func Sync() {
	_ = L().Sync()
}
