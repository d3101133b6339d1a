package debug

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the process logs.
type Options struct {
	// Path of the log file. Empty means ~/.config/go-sonify/debug.log.
	Path    string
	Verbose bool
}

// DefaultPath returns ~/.config/go-sonify/debug.log
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "go-sonify-debug.log")
	}
	return filepath.Join(homeDir, ".config", "go-sonify", "debug.log")
}

// New builds the process logger. The terminal belongs to the UI, so
// everything goes to a file.
func New(opts Options) (*zap.Logger, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	log.Info("=== Debug logging started ===", zap.String("path", path))
	return log, nil
}

// Sampled wraps log so that each distinct message is written once per
// second and then only every n-th time. Use it on tick and event paths.
func Sampled(log *zap.Logger, n int) *zap.Logger {
	if n < 1 {
		n = 1
	}
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, time.Second, 1, n)
	}))
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
