// Package logging provides a leveled, field-carrying implementation of the
// go-gost logger.Logger interface that writes one line per entry.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-gost/core/logger"
)

var levels = []logger.LogLevel{
	logger.TraceLevel,
	logger.DebugLevel,
	logger.InfoLevel,
	logger.WarnLevel,
	logger.ErrorLevel,
	logger.FatalLevel,
}

func rank(level logger.LogLevel) int {
	for i, l := range levels {
		if l == level {
			return i
		}
	}
	return 2
}

// ParseLevel converts a level name such as "debug" to a logger.LogLevel.
func ParseLevel(s string) (logger.LogLevel, error) {
	for _, l := range levels {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return logger.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Logger writes entries at or above its level to an io.Writer.
type Logger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  logger.LogLevel
	fields map[string]any
	now    func() time.Time
	exit   func(int)
}

// New creates a Logger writing to out.
func New(out io.Writer, level logger.LogLevel) *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		out:    out,
		level:  level,
		fields: map[string]any{},
		now:    time.Now,
		exit:   os.Exit,
	}
}

// Discard returns a logger that drops everything.
func Discard() logger.Logger {
	return New(io.Discard, logger.FatalLevel)
}

// OrDefault returns l, or the process default logger when l is nil, or a
// discarding logger when no default has been set either.
func OrDefault(l logger.Logger) logger.Logger {
	if l != nil {
		return l
	}
	if d := logger.Default(); d != nil {
		return d
	}
	return Discard()
}

// WithFields returns a child logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]any) logger.Logger {
	child := *l
	child.fields = make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return &child
}

func (l *Logger) Trace(args ...any)                 { l.log(logger.TraceLevel, fmt.Sprint(args...)) }
func (l *Logger) Tracef(format string, args ...any) { l.log(logger.TraceLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Debug(args ...any)                 { l.log(logger.DebugLevel, fmt.Sprint(args...)) }
func (l *Logger) Debugf(format string, args ...any) { l.log(logger.DebugLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Info(args ...any)                  { l.log(logger.InfoLevel, fmt.Sprint(args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(logger.InfoLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Warn(args ...any)                  { l.log(logger.WarnLevel, fmt.Sprint(args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(logger.WarnLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Error(args ...any)                 { l.log(logger.ErrorLevel, fmt.Sprint(args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(logger.ErrorLevel, fmt.Sprintf(format, args...)) }

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(args ...any) {
	l.log(logger.FatalLevel, fmt.Sprint(args...))
	l.exit(1)
}

// Fatalf logs at fatal level and exits the process.
func (l *Logger) Fatalf(format string, args ...any) {
	l.log(logger.FatalLevel, fmt.Sprintf(format, args...))
	l.exit(1)
}

func (l *Logger) GetLevel() logger.LogLevel {
	return l.level
}

func (l *Logger) IsLevelEnabled(level logger.LogLevel) bool {
	return rank(level) >= rank(l.level)
}

func (l *Logger) log(level logger.LogLevel, msg string) {
	if !l.IsLevelEnabled(level) {
		return
	}

	var b strings.Builder
	b.WriteString(l.now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(string(level)))
	b.WriteByte(' ')
	b.WriteString(msg)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}
