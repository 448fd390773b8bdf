package logi

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Config holds the logging configuration
type Config struct {
	// LogDir is the directory where log files will be stored
	// Default: /var/log/lossreport (or ./logs if not writable)
	LogDir string
	// LogFileName is the name of the log file
	// Default: lossreport.log
	LogFileName string
	// Level is the minimum log level to write
	// Default: slog.LevelInfo
	Level slog.Level
	// MaxSizeMB is the size at which the log file is rotated
	// Default: 64
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept
	// Default: 7
	MaxBackups int
	// Stderr also writes every record to standard error
	Stderr bool
}

// ParseLevel maps debug, info, warn and error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLog creates or returns the singleton logger instance.
// It's safe for concurrent use across multiple goroutines.
// The logger writes JSON records to a size-rotated file.
func NewLog(cfg *Config) (*slog.Logger, error) {
	var initErr error

	once.Do(func() {
		logger, initErr = newLogger(cfg)
	})

	if initErr != nil {
		return nil, initErr
	}

	return logger, nil
}

func newLogger(cfg *Config) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	// Set defaults
	if cfg.LogDir == "" {
		// Try /var/log/lossreport first (works in Docker)
		// Fall back to ./logs if not writable
		cfg.LogDir = "/var/log/lossreport"
		if !isDirWritable(cfg.LogDir) {
			cfg.LogDir = "./logs"
		}
	}
	if cfg.LogFileName == "" {
		cfg.LogFileName = "lossreport.log"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 64
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 7
	}

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
	}

	logPath := filepath.Join(cfg.LogDir, cfg.LogFileName)

	var out io.Writer = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     7,
		Compress:   false,
	}
	if cfg.Stderr {
		out = io.MultiWriter(out, os.Stderr)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		// Remove source info for max performance
		AddSource: false,
	}

	l := slog.New(slog.NewJSONHandler(out, opts))

	// Log initialization
	l.Info("logger initialized",
		"log_path", logPath,
		"level", cfg.Level.String(),
	)
	return l, nil
}

// GetLogger returns the existing logger instance.
// This is a zero-allocation, lock-free read after initialization.
// Panics if NewLog hasn't been called yet - call NewLog once at startup.
func GetLogger() *slog.Logger {
	if logger == nil {
		panic("logger not initialized - call NewLog first")
	}
	return logger
}

// isDirWritable checks if a directory is writable
func isDirWritable(path string) bool {
	// Try to create the directory first
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}

	// Try to create a temp file to verify write access
	testFile := filepath.Join(path, ".write_test")
	file, err := os.OpenFile(testFile, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	file.Close()
	os.Remove(testFile)
	return true
}
