package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel mirrors the teacher's five-level scheme, re-expressed over
// logrus's levels instead of the stdlib log package.
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelTrace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

func parseLevel(s string) (LogLevel, bool) {
	switch s {
	case "ERROR":
		return LevelError, true
	case "WARN":
		return LevelWarn, true
	case "INFO":
		return LevelInfo, true
	case "DEBUG":
		return LevelDebug, true
	case "TRACE":
		return LevelTrace, true
	default:
		return LevelInfo, false
	}
}

// Logger provides structured logging, backed by a *logrus.Entry instead
// of the teacher's raw *log.Logger so records carry fields rather than
// only a formatted string.
type Logger struct {
	entry *logrus.Entry
	mu    sync.RWMutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default, process-wide logger.
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("rfs")

		if level := os.Getenv("RFS_LOG_LEVEL"); level != "" {
			if lvl, ok := parseLevel(level); ok {
				defaultLogger.SetLevel(lvl)
			}
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger whose records carry prefix in a
// "component" field.
func NewLogger(prefix string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(LevelInfo.logrusLevel())
	return &Logger{entry: base.WithField("component", prefix)}
}

// SetLevel sets the logging level for l and everything derived from it
// via WithPrefix, since they share the same underlying *logrus.Logger.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.Logger.SetLevel(level.logrusLevel())
}

func (l *Logger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Trace(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

// WithPrefix returns a child logger nesting an additional "scope" field,
// the structured analogue of the teacher's string-concatenated prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{entry: l.entry.WithField("scope", prefix)}
}

// WithField returns a child logger carrying one additional structured
// field, e.g. resource or op.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}
