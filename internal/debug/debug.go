// Package debug owns the process logger and the verbose/quiet output gates.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	enabled     = os.Getenv("CD3_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	mu     sync.RWMutex
	logger = zap.NewNop()
)

// stdout receives PrintNormal output.
var stdout io.Writer = os.Stdout

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// Level returns the log level implied by the current gates.
func Level() zapcore.Level {
	switch {
	case Enabled():
		return zapcore.DebugLevel
	case quietMode:
		return zapcore.ErrorLevel
	}
	return zapcore.WarnLevel
}

// Init sets the gates and installs a console logger on stderr.
func Init(verbose, quiet bool) (*zap.Logger, error) {
	SetVerbose(verbose)
	SetQuiet(quiet)

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = !Enabled()
	config.Sampling = nil
	config.Level = zap.NewAtomicLevelAt(Level())

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l)
	return l, nil
}

// NewLogger returns a console logger writing to w at level.
func NewLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// SetLogger replaces the process logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the process logger. It is a no-op logger until Init runs.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func Logf(format string, args ...interface{}) {
	if Enabled() {
		L().Debug(fmt.Sprintf(format, args...))
	}
}

// PrintNormal prints output unless quiet mode is enabled
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Fprintf(stdout, format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Fprintln(stdout, args...)
	}
}
