package server

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// DefaultLogger writes through logrus.
type DefaultLogger struct {
	logger *logrus.Logger
}

// NewDefaultLogger logs text lines to stdout at info level.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &DefaultLogger{logger: l}
}

// NewLogger wraps an existing logrus logger.
func NewLogger(l *logrus.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

// SetLevel parses a logrus level name ("debug", "info", ...).
func (l *DefaultLogger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.logger.SetLevel(lvl)
	return nil
}

func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.entry(fields).Debug(msg)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.entry(fields).Info(msg)
}

func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.entry(fields).Error(msg)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.entry(fields).Warn(msg)
}

func (l *DefaultLogger) entry(fields []Field) *logrus.Entry {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = sanitizeValue(f.Value)
	}
	return l.logger.WithFields(lf)
}

// Request paths come straight off the wire; keep log lines bounded.
func sanitizeValue(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if len(s) > 100 {
			return s[:100] + "...[truncated]"
		}
	}
	return v
}

// NullLogger discards all logs (for testing)
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, fields ...Field) {}
func (n *NullLogger) Info(msg string, fields ...Field)  {}
func (n *NullLogger) Error(msg string, fields ...Field) {}
func (n *NullLogger) Warn(msg string, fields ...Field)  {}
