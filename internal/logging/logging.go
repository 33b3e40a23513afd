package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogFile = "wiggle-chat.log"

var (
	mu           sync.Mutex
	traceEnabled bool
	logPath      = defaultLogFile
	logFile      *os.File
	logger       = zap.NewNop()
)

// Error records err at error level. Nil errors are ignored.
func Error(err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	current().Error(err.Error(), fields...)
}

// Warn records a recoverable problem.
func Warn(msg string, fields ...zap.Field) {
	current().Warn(msg, fields...)
}

// Info records a lifecycle message.
func Info(msg string, fields ...zap.Field) {
	current().Info(msg, fields...)
}

// SetTraceEnabled toggles emission of structured trace entries.
func SetTraceEnabled(enabled bool) {
	mu.Lock()
	traceEnabled = enabled
	mu.Unlock()
}

// Trace appends a structured entry to the log when tracing is enabled.
func Trace(event string, payload interface{}) {
	mu.Lock()
	enabled := traceEnabled
	l := logger
	mu.Unlock()
	if !enabled {
		return
	}
	l.Debug("trace", zap.String("event", event), zap.Any("payload", payload))
}

// Configure points the logger at path. Empty values fall back to the default
// file. Directories are created automatically when missing. Until Configure
// runs every call is a no-op, which keeps tests off the filesystem.
func Configure(path string) {
	mu.Lock()
	defer mu.Unlock()
	target := strings.TrimSpace(path)
	if target == "" {
		target = defaultLogFile
	} else if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "unable to create log directory: %v\n", err)
		target = defaultLogFile
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging failed: %v\n", err)
		return
	}
	closeLocked()
	logPath = target
	logFile = f
	logger = newLogger(zapcore.AddSync(f))
}

// Path returns the active log destination.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Close flushes and releases the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logger = zap.NewNop()
}

func closeLocked() {
	_ = logger.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func current() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func newLogger(sink zapcore.WriteSyncer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339Nano))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, zapcore.DebugLevel)
	return zap.New(core)
}
