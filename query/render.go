package query

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTruncateLength is the rune length messages are cut to by Render.
const DefaultTruncateLength = 100

const timestampLayout = "2006-01-02 15:04:05"

// TruncateMessage shortens s to maxLen runes, ending in "..." when cut.
// A non-positive maxLen means DefaultTruncateLength.
func TruncateMessage(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTruncateLength
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// FormatTimestamp renders a unix timestamp in loc, or DefaultLocation when
// loc is nil.
func FormatTimestamp(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation
	}
	return time.Unix(ts, 0).In(loc).Format(timestampLayout)
}

// Render formats an answer as chat text: the conditions line, then one line
// per message, newest first.
func Render(a *Answer, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", a.Conditions)

	if len(a.Messages) == 0 {
		b.WriteString("No messages found.")
		return b.String()
	}

	fmt.Fprintf(&b, "Found %d messages (showing %d):", a.Total, len(a.Messages))
	for _, m := range a.Messages {
		text := strings.Join(strings.Fields(m.PlainText), " ")
		fmt.Fprintf(&b, "\n[%s] %d: %s", FormatTimestamp(m.Time, loc), m.UserID, TruncateMessage(text, DefaultTruncateLength))
	}
	return b.String()
}
