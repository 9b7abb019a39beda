package query

import (
	"cmp"
	"slices"

	"github.com/jonwraymond/chatquery/cache"
)

// mergeMessages combines two newest-first samples, dropping duplicate ids.
// When both sides carry an id, the copy from base wins.
func mergeMessages(base, fetched []cache.Message) []cache.Message {
	seen := make(map[int64]struct{}, len(base)+len(fetched))
	out := make([]cache.Message, 0, len(base)+len(fetched))
	for _, batch := range [][]cache.Message{base, fetched} {
		for _, m := range batch {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b cache.Message) int {
		if c := cmp.Compare(b.Time, a.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// widen returns a copy of entry whose window also covers query, holding
// messages. An open query end is pinned to now.
func widen(entry *cache.Entry, q *cache.QueryFilter, now int64, messages []cache.Message, total int) *cache.Entry {
	out := entry.CopyFilterOnly()
	out.Messages = messages
	out.TotalCount = total

	stored := entry.Window(now)
	wanted := q.Window(now)
	if wanted.Start < stored.Start {
		out.TimeAfter = nil
		if q.TimeAfter != nil {
			out.TimeAfter = cache.Int64(*q.TimeAfter)
		}
	}
	if wanted.End > stored.End {
		out.TimeBefore = cache.Int64(wanted.End)
	}
	return out
}

// clip returns at most limit messages.
func clip(messages []cache.Message, limit int) []cache.Message {
	if limit > 0 && len(messages) > limit {
		return messages[:limit]
	}
	return messages
}
