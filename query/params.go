package query

import (
	"fmt"
	"time"

	"github.com/jonwraymond/chatquery/cache"
)

// Params are the user-facing query arguments.
type Params struct {
	// GroupID names the group to read. Only private-chat superusers may set it.
	GroupID int64

	// UserID restricts results to one sender.
	UserID *int64

	// Content is a case-sensitive substring.
	Content string

	// Regex is an RE2 expression matched against the message text.
	Regex string

	// After and Before bound the time window; see ParseTime.
	After  string
	Before string

	// Limit caps the returned messages. Default: cache.DefaultLimit.
	Limit int
}

// BuildFilter validates p and turns it into a filter over groupID. Either
// Content or Regex is required.
func BuildFilter(groupID int64, p Params, now time.Time, loc *time.Location) (cache.QueryFilter, error) {
	if p.Content == "" && p.Regex == "" {
		return cache.QueryFilter{}, ErrMissingMessageFilter
	}

	f := cache.QueryFilter{
		GroupID: groupID,
		UserID:  p.UserID,
		Limit:   p.Limit,
	}
	if p.Content != "" {
		f.Content = cache.String(p.Content)
	}
	if p.Regex != "" {
		f.Regex = cache.String(p.Regex)
	}

	if p.After != "" {
		ts, absolute, err := ParseTime(p.After, now, loc)
		if err != nil {
			return cache.QueryFilter{}, fmt.Errorf("after: %w", err)
		}
		f.TimeAfter = cache.Int64(ts)
		f.HasAbsoluteTime = f.HasAbsoluteTime || absolute
	}
	if p.Before != "" {
		ts, absolute, err := ParseTime(p.Before, now, loc)
		if err != nil {
			return cache.QueryFilter{}, fmt.Errorf("before: %w", err)
		}
		f.TimeBefore = cache.Int64(ts)
		f.HasAbsoluteTime = f.HasAbsoluteTime || absolute
	}

	return cache.NewQueryFilter(f)
}
