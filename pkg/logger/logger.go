package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls log level and output format.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Logger wraps logrus with field chaining.
type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// New creates a logger from config. Unknown levels fall back to info.
func New(config Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{})
	}

	l.SetOutput(os.Stdout)

	return &Logger{
		logger: l,
		fields: make(logrus.Fields),
	}
}

// WithField returns a logger with an extra field attached.
func (l *Logger) WithField(key string, value any) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{logger: l.logger, fields: fields}
}

// WithFields returns a logger with extra fields attached.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &Logger{logger: l.logger, fields: merged}
}

// WithError returns a logger with the error attached as a field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err)
}

func (l *Logger) Debug(args ...any) { l.logger.WithFields(l.fields).Debug(args...) }
func (l *Logger) Info(args ...any)  { l.logger.WithFields(l.fields).Info(args...) }
func (l *Logger) Warn(args ...any)  { l.logger.WithFields(l.fields).Warn(args...) }
func (l *Logger) Error(args ...any) { l.logger.WithFields(l.fields).Error(args...) }
func (l *Logger) Fatal(args ...any) { l.logger.WithFields(l.fields).Fatal(args...) }

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.WithFields(l.fields).Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.WithFields(l.fields).Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.WithFields(l.fields).Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.WithFields(l.fields).Errorf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.logger.WithFields(l.fields).Fatalf(format, args...)
}
