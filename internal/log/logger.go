// Package log is a thin key/value wrapper around logrus.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000"

// Logger logs messages with key/value context pairs.
type Logger struct {
	entry *logrus.Entry
}

var root = New(logrus.StandardLogger())

// New wraps a logrus logger.
func New(l *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(l)}
}

// Root returns the process-wide logger configured by SetLogger.
func Root() *Logger {
	return root
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(l)
}

// SetLogger configures the standard logger.
func SetLogger(level string, jsonFormat, colorFormat bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	configure(logrus.StandardLogger(), os.Stdout, lvl, jsonFormat, colorFormat)
	return nil
}

func configure(l *logrus.Logger, out io.Writer, lvl logrus.Level, jsonFormat, colorFormat bool) {
	l.SetOutput(out)
	l.SetLevel(lvl)
	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:     colorFormat,
		DisableColors:   !colorFormat,
		ForceQuote:      true,
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableSorting:  true,
	})
}

func fields(ctx []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(ctx)/2)
	for k := 0; k+2 <= len(ctx); k += 2 {
		if key, ok := ctx[k].(string); ok {
			f[key] = ctx[k+1]
		}
	}
	if len(ctx)%2 != 0 {
		f["LOG_ERROR"] = "odd number of context values"
	}
	return f
}

// With returns a logger that adds ctx to every message.
func (l *Logger) With(ctx ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(ctx))}
}

func (l *Logger) Debug(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Debug(msg)
}

func (l *Logger) Info(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Info(msg)
}

func (l *Logger) Warn(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Warn(msg)
}

func (l *Logger) Error(msg string, ctx ...interface{}) {
	l.entry.WithFields(fields(ctx)).Error(msg)
}

func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }

func Info(msg string, ctx ...interface{}) { root.Info(msg, ctx...) }

func Warn(msg string, ctx ...interface{}) { root.Warn(msg, ctx...) }

func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
