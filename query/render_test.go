package query

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonwraymond/chatquery/cache"
)

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short", "Hello", 0, "Hello"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdefgh", 6, "abc..."},
		{"runes", "你好世界你好世界", 5, "你好..."},
		{"tiny limit", "abcdef", 2, ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateMessage(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("TruncateMessage(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}

	long := TruncateMessage(strings.Repeat("A", 150), 100)
	if utf8.RuneCountInString(long) != 100 || !strings.HasSuffix(long, "...") {
		t.Errorf("TruncateMessage(150 A's, 100) = %q", long)
	}
}

func TestFormatTimestamp(t *testing.T) {
	const ts = 1704067200 // 2024-01-01 00:00:00 UTC

	if got := FormatTimestamp(ts, nil); got != "2024-01-01 08:00:00" {
		t.Errorf("FormatTimestamp(default) = %q", got)
	}
	if got := FormatTimestamp(ts, time.UTC); got != "2024-01-01 00:00:00" {
		t.Errorf("FormatTimestamp(UTC) = %q", got)
	}
}

func TestRender(t *testing.T) {
	empty := &Answer{Conditions: `content="xyznonexistent" | group=1076794521 | limit=5`}
	want := "Query: content=\"xyznonexistent\" | group=1076794521 | limit=5\n\nNo messages found."
	if got := Render(empty, nil); got != want {
		t.Errorf("Render(empty) =\n%s\nwant\n%s", got, want)
	}

	a := &Answer{
		Conditions: `content="lunch" | group=100 | limit=2`,
		Total:      5,
		Messages: []cache.Message{
			{ID: 2, UserID: 8, PlainText: "lunch\nat noon", Time: 1704067260},
			{ID: 1, UserID: 7, PlainText: "lunch?", Time: 1704067200},
		},
	}
	want = "Query: content=\"lunch\" | group=100 | limit=2\n\n" +
		"Found 5 messages (showing 2):\n" +
		"[2024-01-01 00:01:00] 8: lunch at noon\n" +
		"[2024-01-01 00:00:00] 7: lunch?"
	if got := Render(a, time.UTC); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}
