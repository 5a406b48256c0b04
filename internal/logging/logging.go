// Package logging turns the run's log descriptor into a per-run zap logger.
//
// The descriptor is a free-form string such as "test_debug". It is parsed once,
// at the boundary, into a [Mode]; the rest of the code only sees the flags.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	markerTest  = "test"
	markerDebug = "debug"
)

// Mode holds the flags carried by a log descriptor.
type Mode struct {
	Test  bool
	Debug bool
}

// ParseMode matches "test" and "debug" as case-insensitive substrings.
// An empty descriptor yields the zero Mode.
func ParseMode(logInfo string) Mode {
	s := strings.ToLower(logInfo)
	return Mode{
		Test:  strings.Contains(s, markerTest),
		Debug: strings.Contains(s, markerDebug),
	}
}

func (m Mode) Level() zapcore.Level {
	if m.Debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (m Mode) String() string {
	parts := make([]string, 0, 2)
	if m.Test {
		parts = append(parts, markerTest)
	}
	if m.Debug {
		parts = append(parts, markerDebug)
	}
	if len(parts) == 0 {
		return "normal"
	}
	return strings.Join(parts, "_")
}

type Config struct {
	Dir     string
	Mode    Mode
	Console zapcore.WriteSyncer
}

// Logger is a zap logger bound to one run's log file.
type Logger struct {
	*zap.Logger
	level zapcore.Level
	path  string
	close func()
}

// New builds a logger that appends JSON lines to <Dir>/<fileName> and
// writes human-readable lines to Console (stderr when nil). The path is
// opened as a plain file name, never parsed as a sink URL.
func New(cfg Config, fileName string) (*Logger, error) {
	path := filepath.Join(cfg.Dir, fileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	file := zapcore.Lock(f)

	console := cfg.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}

	level := cfg.Mode.Level()
	consoleEnc := zap.NewDevelopmentEncoderConfig()
	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), console, level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), file, level),
	)

	return &Logger{
		Logger: zap.New(core),
		level:  level,
		path:   path,
		close:  func() { _ = f.Close() },
	}, nil
}

func (l *Logger) Level() zapcore.Level { return l.level }

func (l *Logger) Path() string { return l.path }

// Close flushes buffered entries and releases the log file. Safe to call twice.
func (l *Logger) Close() error {
	if l == nil || l.close == nil {
		return nil
	}
	err := l.Logger.Sync()
	l.close()
	l.close = nil
	if err != nil && !isSyncNoise(err) {
		return err
	}
	return nil
}

// Syncing a terminal or pipe returns EINVAL/ENOTTY on some platforms.
func isSyncNoise(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
