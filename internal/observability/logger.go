package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a thin key/value facade over logrus so call sites read
// logger.Info("msg", "key", value).
type Logger struct {
	base *logrus.Logger
}

func NewLogger(level string) *Logger {
	return newLogger(os.Stdout, level)
}

// NewDiscardLogger is used by tests and CLI commands that must stay quiet.
func NewDiscardLogger() *Logger {
	return newLogger(io.Discard, "error")
}

func newLogger(out io.Writer, level string) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)
	return &Logger{base: base}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.entry(kv).Debug(msg)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.entry(kv).Info(msg)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.entry(kv).Warn(msg)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.entry(kv).Error(msg)
}

func (l *Logger) entry(kv []any) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fields[key] = "(missing)"
			break
		}
		if err, ok := kv[i+1].(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = kv[i+1]
	}
	return l.base.WithFields(fields)
}
