package cache

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// keySeparator joins the filter fields of an entry key.
const keySeparator = ":"

// noneToken renders an absent field in an entry key.
const noneToken = "None"

// Message is a chat record returned by the record store.
type Message struct {
	ID        int64  `json:"id"`
	GroupID   int64  `json:"group_id"`
	UserID    int64  `json:"user_id"`
	PlainText string `json:"plain_text"`
	Time      int64  `json:"time"`
}

// Entry is the unit stored in the cache: the filter a real query ran with
// and the messages it matched, newest first.
type Entry struct {
	GroupID    int64     `json:"group_id"`
	UserID     *int64    `json:"user_id"`
	Content    *string   `json:"content"`
	Regex      *string   `json:"regex"`
	TimeAfter  *int64    `json:"time_after"`
	TimeBefore *int64    `json:"time_before"`
	Messages   []Message `json:"messages"`
	TotalCount int       `json:"total_count"`
}

// NewEntry builds an entry carrying the filter fields of f.
func NewEntry(f QueryFilter, messages []Message, total int) *Entry {
	return &Entry{
		GroupID:    f.GroupID,
		UserID:     cloneInt64(f.UserID),
		Content:    cloneString(f.Content),
		Regex:      cloneString(f.Regex),
		TimeAfter:  cloneInt64(f.TimeAfter),
		TimeBefore: cloneInt64(f.TimeBefore),
		Messages:   messages,
		TotalCount: total,
	}
}

// Key returns the deterministic map key of the entry.
// Format: group:user:content:regex:time_after:time_before, absent fields as "None".
// Inside content and regex, `\` and `:` are escaped with a backslash, and a
// literal "None" is written as `\None`, so two entries collide iff every
// filter field is exactly equal.
func (e *Entry) Key() string {
	parts := []string{
		strconv.FormatInt(e.GroupID, 10),
		formatInt64(e.UserID),
		formatString(e.Content),
		formatString(e.Regex),
		formatInt64(e.TimeAfter),
		formatInt64(e.TimeBefore),
	}
	return strings.Join(parts, keySeparator)
}

// CopyFilterOnly returns the filter fields of e without messages.
func (e *Entry) CopyFilterOnly() *Entry {
	return &Entry{
		GroupID:    e.GroupID,
		UserID:     cloneInt64(e.UserID),
		Content:    cloneString(e.Content),
		Regex:      cloneString(e.Regex),
		TimeAfter:  cloneInt64(e.TimeAfter),
		TimeBefore: cloneInt64(e.TimeBefore),
		Messages:   []Message{},
	}
}

// Filter returns the filter the entry was computed for. Its limit is unset.
func (e *Entry) Filter() QueryFilter {
	return QueryFilter{
		GroupID:    e.GroupID,
		UserID:     cloneInt64(e.UserID),
		Content:    cloneString(e.Content),
		Regex:      cloneString(e.Regex),
		TimeAfter:  cloneInt64(e.TimeAfter),
		TimeBefore: cloneInt64(e.TimeBefore),
	}
}

// Window returns the time range the entry covers, with now standing in for
// an open upper bound.
func (e *Entry) Window(now int64) TimeRange {
	return windowOf(e.TimeAfter, e.TimeBefore, now)
}

// clone returns a deep copy of e keeping at most limit messages. When it
// truncates, messages are first ordered newest first so the oldest are the
// ones dropped. A zero limit keeps all in their original order.
func (e *Entry) clone(limit int) *Entry {
	c := e.CopyFilterOnly()
	c.Messages = append(make([]Message, 0, len(e.Messages)), e.Messages...)
	if limit > 0 && len(c.Messages) > limit {
		slices.SortStableFunc(c.Messages, newestFirst)
		c.Messages = c.Messages[:limit:limit]
	}
	c.TotalCount = e.TotalCount
	return c
}

// newestFirst orders messages by time, then id, descending.
func newestFirst(a, b Message) int {
	if c := cmp.Compare(b.Time, a.Time); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func formatInt64(v *int64) string {
	if v == nil {
		return noneToken
	}
	return strconv.FormatInt(*v, 10)
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

func formatString(v *string) string {
	if v == nil {
		return noneToken
	}
	if *v == noneToken {
		return `\` + noneToken
	}
	return keyEscaper.Replace(*v)
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
