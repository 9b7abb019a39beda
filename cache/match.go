package cache

import "strings"

// MatchType classifies how well a stored entry covers a query.
type MatchType int

const (
	// NoMatch means the entry cannot answer the query.
	NoMatch MatchType = iota
	// ExactMatch means the stored window contains the query window.
	ExactMatch
	// FuzzyTime means the entry misses only a little recent time of a relative query.
	FuzzyTime
	// PartialOverlap means the entry is reusable once the missing ranges are fetched.
	PartialOverlap
)

// String returns the string representation of the match type.
func (m MatchType) String() string {
	switch m {
	case NoMatch:
		return "no_match"
	case ExactMatch:
		return "exact"
	case FuzzyTime:
		return "fuzzy_time"
	case PartialOverlap:
		return "partial_overlap"
	default:
		return "unknown"
	}
}

// rank orders match types from most to least useful.
func (m MatchType) rank() int {
	switch m {
	case ExactMatch:
		return 0
	case FuzzyTime:
		return 1
	case PartialOverlap:
		return 2
	default:
		return 3
	}
}

// predicate is one weak-match check of a stored entry against a query.
type predicate func(stored *Entry, q *QueryFilter) bool

// fieldPredicates run in order; the first failure rejects the entry.
var fieldPredicates = []predicate{
	matchGroup,
	matchRegex,
	matchUser,
	matchContent,
}

// matchGroup requires the same group; there is no cross-group reuse.
func matchGroup(stored *Entry, q *QueryFilter) bool {
	return q.GroupID != 0 && stored.GroupID == q.GroupID
}

// matchRegex requires both regexes absent or exactly equal.
func matchRegex(stored *Entry, q *QueryFilter) bool {
	return equalString(stored.Regex, q.Regex)
}

// matchUser lets an entry cached for all users serve any single user.
func matchUser(stored *Entry, q *QueryFilter) bool {
	if stored.UserID == nil {
		return true
	}
	return q.UserID != nil && *q.UserID == *stored.UserID
}

// matchContent lets an entry serve a query whose content contains the
// entry's content, i.e. the entry was computed for an equal or broader set.
func matchContent(stored *Entry, q *QueryFilter) bool {
	if stored.Content == nil {
		return true
	}
	return q.Content != nil && strings.Contains(*q.Content, *stored.Content)
}

func matchFields(stored *Entry, q *QueryFilter) bool {
	for _, p := range fieldPredicates {
		if !p(stored, q) {
			return false
		}
	}
	return true
}

// coverage is the time classification of one stored entry.
type coverage struct {
	match   MatchType
	stored  TimeRange
	query   TimeRange
	missing []TimeRange
}

// classifyCoverage decides whether the stored window can answer the query window.
func classifyCoverage(stored, query TimeRange, hasAbsoluteTime bool) coverage {
	c := coverage{stored: stored, query: query}

	if stored.Contains(query) {
		c.match = ExactMatch
		return c
	}

	ratio := CalculateOverlapRatio(stored, query)

	if !hasAbsoluteTime && ratio > FuzzyOverlapThreshold && uncoveredRecent(stored, query) < FuzzyMaxUncovered {
		c.match = FuzzyTime
		return c
	}

	if ratio > PartialOverlapThreshold {
		c.match = PartialOverlap
		c.missing = missingRanges(stored, query)
		return c
	}

	c.match = NoMatch
	return c
}

// evaluate runs the field predicates and the time classification.
func evaluate(stored *Entry, q *QueryFilter, now int64) coverage {
	if !matchFields(stored, q) {
		return coverage{match: NoMatch}
	}
	return classifyCoverage(stored.Window(now), q.Window(now), q.HasAbsoluteTime)
}

// better reports whether candidate should replace best.
func (c coverage) better(best coverage) bool {
	if c.match.rank() != best.match.rank() {
		return c.match.rank() < best.match.rank()
	}
	return c.stored.Duration() < best.stored.Duration()
}

// Narrow returns the messages of e that answer q: its user and content,
// inside the part of q's window that e covers. Order is kept.
func (e *Entry) Narrow(q *QueryFilter, now int64) []Message {
	window, ok := e.Window(now).Intersect(q.Window(now))
	if !ok {
		return []Message{}
	}
	return filterMessages(e.Messages, q, window)
}

// filterMessages narrows the stored sample to what the query asked for:
// the query's user and content, inside the covered window.
func filterMessages(messages []Message, q *QueryFilter, window TimeRange) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Time < window.Start || m.Time > window.End {
			continue
		}
		if q.UserID != nil && m.UserID != *q.UserID {
			continue
		}
		if q.Content != nil && !strings.Contains(m.PlainText, *q.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}
