package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, line)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_WithQueryFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithQuery(QueryMeta{
		ID:         "q-1",
		Operation:  "query",
		GroupID:    1001,
		UserID:     42,
		Conditions: `content="hello"`,
	})

	logger.Info(context.Background(), "query completed", Field{Key: "duration_ms", Value: 1.5})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	entry := lines[0]

	want := map[string]any{
		"msg":              "query completed",
		"level":            "info",
		"query.id":         "q-1",
		"query.operation":  "query",
		"query.group_id":   float64(1001),
		"query.user_id":    float64(42),
		"query.conditions": `content="hello"`,
		"duration_ms":      1.5,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestLogger_WithQueryOmitsEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).
		WithQuery(QueryMeta{Operation: "fetch", GroupID: 7}).
		Info(context.Background(), "ok")

	entry := decodeLines(t, &buf)[0]
	for _, k := range []string{"query.id", "query.user_id", "query.conditions"} {
		if _, ok := entry[k]; ok {
			t.Errorf("unexpected %s in %v", k, entry)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"debug", "info", "warn", "error"}},
		{level: "info", want: []string{"info", "warn", "error"}},
		{level: "warn", want: []string{"warn", "error"}},
		{level: "error", want: []string{"error"}},
		{level: "bogus", want: []string{"info", "warn", "error"}},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLoggerWithWriter(tc.level, &buf)
			ctx := context.Background()
			l.Debug(ctx, "d")
			l.Info(ctx, "i")
			l.Warn(ctx, "w")
			l.Error(ctx, "e")

			var got []string
			for _, e := range decodeLines(t, &buf) {
				got = append(got, e["level"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("levels = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLogger_RedactsMessageBodies(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf)
	l.Warn(context.Background(), "sample",
		Field{Key: "plain_text", Value: "private chat line"},
		Field{Key: "dsn", Value: "postgres://user:pw@host/db"},
		Field{Key: "key", Value: "1001:None"},
	)

	entry := decodeLines(t, &buf)[0]
	if entry["plain_text"] != "[REDACTED]" {
		t.Errorf("plain_text = %v, want redacted", entry["plain_text"])
	}
	if entry["dsn"] != "[REDACTED]" {
		t.Errorf("dsn = %v, want redacted", entry["dsn"])
	}
	if entry["key"] != "1001:None" {
		t.Errorf("key = %v, want passthrough", entry["key"])
	}
	if strings.Contains(buf.String(), "private chat line") {
		t.Error("message body leaked into log output")
	}
}

func TestLogger_ErrorValuesRendered(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "failed",
		Field{Key: "error", Value: errors.New("disk full")})

	if got := decodeLines(t, &buf)[0]["error"]; got != "disk full" {
		t.Fatalf("error = %v, want %q", got, "disk full")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(s).String(); got != s {
			t.Errorf("ParseLogLevel(%q).String() = %q", s, got)
		}
	}
}
