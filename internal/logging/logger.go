// Package logging writes levelled key=value lines for taskdeck:
//
//	WARN: load failed | error="HTTP 500 Internal Server Error" generation=3 session=5f0c...
//
// Fields are sorted by key so lines for the same event always line up.
// Loggers derived with With share their parent's output and level, so
// raising the level on the root logger also applies to every session
// logger made from it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// Level represents a log level.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the upper-case level name.
func (l Level) String() string {
	if l >= LevelDebug && l <= LevelError {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel parses a case-insensitive level name ("debug", "info", "warn",
// "warning", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// sink is the output and level shared by a logger family.
type sink struct {
	level atomic.Int32
	out   atomic.Pointer[log.Logger]
}

// Logger is a levelled logger carrying context fields.
type Logger struct {
	sink   *sink
	fields map[string]any
}

var defaultLogger = newLogger(log.New(os.Stderr, "", log.LstdFlags), LevelWarn)

func newLogger(out *log.Logger, level Level) *Logger {
	s := &sink{}
	s.level.Store(int32(level))
	s.out.Store(out)
	return &Logger{sink: s}
}

// New returns a Logger writing bare lines (no timestamp) to w.
func New(w io.Writer, level Level) *Logger {
	return newLogger(log.New(w, "", 0), level)
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// Default returns the process logger: stderr, timestamped, warn level.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum level for l and every logger sharing its
// output.
func (l *Logger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return Level(l.sink.level.Load())
}

// Enabled reports whether a line at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// SetOutput redirects l and every logger sharing its output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.out.Store(log.New(w, "", 0))
}

// With returns a logger that adds the given key/value pairs to every line.
// A later value for the same key replaces the earlier one.
func (l *Logger) With(keyVals ...any) *Logger {
	fields := make(map[string]any, len(l.fields)+len(keyVals)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	addPairs(fields, keyVals)
	return &Logger{sink: l.sink, fields: fields}
}

// addPairs copies alternating key/value arguments into fields. A trailing
// key without a value is kept with the value "(missing)"; non-string keys
// are formatted with fmt.
func addPairs(fields map[string]any, keyVals []any) {
	for i := 0; i < len(keyVals); i += 2 {
		key := fmt.Sprint(keyVals[i])
		if s, ok := keyVals[i].(string); ok {
			key = s
		}
		if i+1 < len(keyVals) {
			fields[key] = keyVals[i+1]
		} else {
			fields[key] = "(missing)"
		}
	}
}

func (l *Logger) log(level Level, msg string, keyVals []any) {
	if !l.Enabled(level) {
		return
	}
	l.sink.out.Load().Print(format(level, msg, l.fields, keyVals))
}

// format renders one line. fields and keyVals are merged, keyVals winning.
func format(level Level, msg string, fields map[string]any, keyVals []any) string {
	all := fields
	if len(keyVals) > 0 {
		all = make(map[string]any, len(fields)+len(keyVals)/2)
		for k, v := range fields {
			all[k] = v
		}
		addPairs(all, keyVals)
	}

	var sb strings.Builder
	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)

	if len(all) == 0 {
		return sb.String()
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString(" |")
	for _, k := range keys {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(formatValue(all[k]))
	}
	return sb.String()
}

// formatValue quotes errors and any string that would break key=value
// parsing.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case error:
		return fmt.Sprintf("%q", val.Error())
	case string:
		if val == "" || strings.ContainsAny(val, " \t\n\"=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case fmt.Stringer:
		return formatValue(val.String())
	default:
		return fmt.Sprint(v)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyVals ...any) {
	l.log(LevelDebug, msg, keyVals)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyVals ...any) {
	l.log(LevelInfo, msg, keyVals)
}

// Warn logs at warn level (for recoverable errors).
func (l *Logger) Warn(msg string, keyVals ...any) {
	l.log(LevelWarn, msg, keyVals)
}

// Error logs at error level (for significant errors).
func (l *Logger) Error(msg string, keyVals ...any) {
	l.log(LevelError, msg, keyVals)
}
