package headlights

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FileConfig controls the rotating log file. An empty Path disables file output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// DefaultLogger writes through zap to the console and, optionally, a lumberjack file.
type DefaultLogger struct {
	mu     sync.Mutex
	level  zap.AtomicLevel
	base   zapcore.Level
	sugar  *zap.SugaredLogger
	closer func() error
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	level := "info"
	if debug {
		level = "debug"
	}
	return NewLogger(prefix, level, FileConfig{}, true)
}

// NewLogger builds a logger at the named level ("debug", "info", "warn", "error").
// Set console to false to log only to the file.
func NewLogger(prefix string, level string, file FileConfig, console bool) *DefaultLogger {
	base := ParseLevel(level)
	atom := zap.NewAtomicLevelAt(base)

	var cores []zapcore.Core
	if console {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "logger",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atom))
	}

	var closer func() error
	if file.Path != "" {
		w := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
			LocalTime:  true,
		}
		closer = w.Close
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "logger",
			MessageKey:       "msg",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), atom))
	}

	l := zap.New(zapcore.NewTee(cores...))
	if prefix != "" {
		l = l.Named(prefix)
	}
	return &DefaultLogger{
		level:  atom,
		base:   base,
		sugar:  l.Sugar(),
		closer: closer,
	}
}

// ParseLevel maps a level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

// SetDebug toggles debug output. Disabling it restores the level the logger was built with.
func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	if l.base == zapcore.DebugLevel {
		l.level.SetLevel(zapcore.InfoLevel)
		return
	}
	l.level.SetLevel(l.base)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Close flushes buffered entries and closes the log file, if any.
func (l *DefaultLogger) Close() error {
	_ = l.sugar.Sync()
	if l.closer != nil {
		return l.closer()
	}
	return nil
}

type nopLogger struct{}

func NewNopLogger() Logger                           { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}
