package observe

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"os"
	"slices"
	"sync"
	"time"
)

// Logger writes structured lines about queries and cache maintenance.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: best effort; a line that cannot be written is dropped.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// WithQuery returns a Logger that stamps every line with meta.
	WithQuery(meta QueryMeta) Logger
}

// Field is one key/value pair of a log line.
type Field struct {
	Key   string
	Value any
}

// LogLevel orders log lines by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{LevelDebug: "debug", LevelInfo: "info", LevelWarn: "warn", LevelError: "error"}

// ParseLogLevel maps a level name to a LogLevel. Unknown names and "" mean info.
func ParseLogLevel(s string) LogLevel {
	if i := slices.Index(levelNames[:], s); i >= 0 {
		return LogLevel(i)
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line. Loggers derived with WithQuery
// share the writer and its lock.
type jsonLogger struct {
	min   LogLevel
	out   io.Writer
	mu    *sync.Mutex
	attrs map[string]any
}

// NewLogger returns a JSON logger on stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger on w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{min: ParseLogLevel(level), out: w, mu: &sync.Mutex{}}
}

func (l *jsonLogger) WithQuery(meta QueryMeta) Logger {
	attrs := maps.Clone(l.attrs)
	if attrs == nil {
		attrs = make(map[string]any, 5)
	}
	attrs["query.operation"] = meta.Operation
	attrs["query.group_id"] = meta.GroupID
	if meta.ID != "" {
		attrs["query.id"] = meta.ID
	}
	if meta.UserID != 0 {
		attrs["query.user_id"] = meta.UserID
	}
	if meta.Conditions != "" {
		attrs["query.conditions"] = meta.Conditions
	}
	return &jsonLogger{min: l.min, out: l.out, mu: l.mu, attrs: attrs}
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelError, msg, fields)
}

func (l *jsonLogger) write(level LogLevel, msg string, fields []Field) {
	if level < l.min {
		return
	}

	line := make(map[string]any, len(l.attrs)+len(fields)+3)
	maps.Copy(line, l.attrs)
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			line[f.Key] = v.Error()
		default:
			line[f.Key] = v
		}
		if slices.Contains(RedactedFields, f.Key) {
			line[f.Key] = "[REDACTED]"
		}
	}
	line["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level.String()
	line["msg"] = msg

	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(data)
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...Field) {}
func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (l nopLogger) WithQuery(QueryMeta) Logger            { return l }

var (
	_ Logger = (*jsonLogger)(nil)
	_ Logger = nopLogger{}
)
