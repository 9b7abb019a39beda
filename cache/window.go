package cache

// TimeRange is an inclusive range of unix seconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration returns End-Start, or 0 for an empty or inverted range.
func (r TimeRange) Duration() int64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether other lies entirely inside r.
func (r TimeRange) Contains(other TimeRange) bool {
	return r.Start <= other.Start && r.End >= other.End
}

// Intersect returns the overlap of r and other and whether they overlap at all.
func (r TimeRange) Intersect(other TimeRange) (TimeRange, bool) {
	out := TimeRange{Start: max(r.Start, other.Start), End: min(r.End, other.End)}
	if out.End < out.Start {
		return TimeRange{}, false
	}
	return out, true
}

// CalculateOverlapRatio returns the share of the query window covered by the
// stored window: 1.0 when query lies inside stored, 0.0 when they are disjoint
// or the query window has no duration.
func CalculateOverlapRatio(stored, query TimeRange) float64 {
	queryDuration := query.Duration()
	if queryDuration == 0 {
		return 0.0
	}
	if stored.Contains(query) {
		return 1.0
	}
	overlap, ok := stored.Intersect(query)
	if !ok {
		return 0.0
	}
	return float64(overlap.Duration()) / float64(queryDuration)
}

// missingRanges returns the parts of query not covered by stored: at most one
// range before the stored start and one after the stored end.
func missingRanges(stored, query TimeRange) []TimeRange {
	var out []TimeRange
	if query.Start < stored.Start {
		out = append(out, TimeRange{Start: query.Start, End: min(stored.Start-1, query.End)})
	}
	if query.End > stored.End {
		out = append(out, TimeRange{Start: max(stored.End+1, query.Start), End: query.End})
	}
	return out
}

// uncoveredRecent is how much of the query's most recent time the stored
// window misses, floored at zero.
func uncoveredRecent(stored, query TimeRange) int64 {
	return max(query.End-stored.End, 0)
}

func windowOf(after, before *int64, now int64) TimeRange {
	w := TimeRange{End: now}
	if after != nil {
		w.Start = *after
	}
	if before != nil {
		w.End = *before
	}
	return w
}
