package cache

import (
	"fmt"
	"regexp"
	"strings"
)

// QueryFilter describes a chat-history query.
//
// A zero TimeAfter means "from the beginning"; a nil TimeBefore means "up to
// now". HasAbsoluteTime is set when the caller gave a wall-clock instant
// rather than a relative duration, which disables fuzzy time matching.
type QueryFilter struct {
	GroupID         int64
	UserID          *int64
	Content         *string
	Regex           *string
	TimeAfter       *int64
	TimeBefore      *int64
	Limit           int
	HasAbsoluteTime bool

	pattern *regexp.Regexp
}

// NewQueryFilter validates f and returns the normalized copy.
func NewQueryFilter(f QueryFilter) (QueryFilter, error) {
	if err := f.Validate(); err != nil {
		return QueryFilter{}, err
	}
	return f, nil
}

// Validate normalizes f in place: empty content and regex become absent, the
// limit is defaulted and clamped, and the regex is compiled.
func (f *QueryFilter) Validate() error {
	if f.GroupID == 0 {
		return &InvalidFilterError{Field: "group", Reason: "group id is required"}
	}
	if f.Content != nil && *f.Content == "" {
		f.Content = nil
	}
	if f.Regex != nil && *f.Regex == "" {
		f.Regex = nil
	}
	if f.TimeAfter != nil && f.TimeBefore != nil && *f.TimeAfter > *f.TimeBefore {
		return &InvalidFilterError{
			Field:  "time",
			Reason: fmt.Sprintf("after %d is later than before %d", *f.TimeAfter, *f.TimeBefore),
		}
	}

	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}

	f.pattern = nil
	if f.Regex != nil {
		re, err := regexp.Compile(*f.Regex)
		if err != nil {
			return &InvalidFilterError{Field: "regex", Reason: fmt.Sprintf("invalid regex %q", *f.Regex), Err: err}
		}
		f.pattern = re
	}
	return nil
}

// Pattern returns the compiled regex, or nil when the filter has none or the
// expression does not compile.
func (f *QueryFilter) Pattern() *regexp.Regexp {
	if f.Regex == nil {
		return nil
	}
	if f.pattern == nil {
		re, err := regexp.Compile(*f.Regex)
		if err != nil {
			return nil
		}
		f.pattern = re
	}
	return f.pattern
}

// HasMessageFilter reports whether the filter narrows by message text.
func (f *QueryFilter) HasMessageFilter() bool {
	return f.Content != nil || f.Regex != nil
}

// Window returns the requested time range, with now standing in for an open
// upper bound.
func (f *QueryFilter) Window(now int64) TimeRange {
	return windowOf(f.TimeAfter, f.TimeBefore, now)
}

// FormatConditions renders the filter as a one-line summary, e.g.
// content="hello" | user=123 | group=456 | limit=20.
func (f *QueryFilter) FormatConditions() string {
	var parts []string
	if f.Content != nil {
		parts = append(parts, fmt.Sprintf("content=%q", *f.Content))
	}
	if f.Regex != nil {
		parts = append(parts, fmt.Sprintf("regex=%q", *f.Regex))
	}
	if f.UserID != nil {
		parts = append(parts, fmt.Sprintf("user=%d", *f.UserID))
	}
	if f.GroupID != 0 {
		parts = append(parts, fmt.Sprintf("group=%d", f.GroupID))
	}
	if f.TimeAfter != nil {
		parts = append(parts, fmt.Sprintf("after=%d", *f.TimeAfter))
	}
	if f.TimeBefore != nil {
		parts = append(parts, fmt.Sprintf("before=%d", *f.TimeBefore))
	}
	parts = append(parts, fmt.Sprintf("limit=%d", f.Limit))
	return strings.Join(parts, " | ")
}
