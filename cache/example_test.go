package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/chatquery/cache"
)

func ExampleCalculateOverlapRatio() {
	stored := cache.TimeRange{Start: 1000, End: 2000}

	fmt.Println(cache.CalculateOverlapRatio(stored, cache.TimeRange{Start: 1200, End: 1800}))
	fmt.Println(cache.CalculateOverlapRatio(stored, cache.TimeRange{Start: 1500, End: 2500}))
	fmt.Println(cache.CalculateOverlapRatio(stored, cache.TimeRange{Start: 3000, End: 4000}))
	// Output:
	// 1
	// 0.5
	// 0
}

func ExampleEntry_Key() {
	e := &cache.Entry{
		GroupID:    123,
		Content:    cache.String("hello"),
		TimeAfter:  cache.Int64(1000),
		TimeBefore: cache.Int64(2000),
	}
	fmt.Println(e.Key())
	// Output:
	// 123:None:hello:None:1000:2000
}

func ExampleNewQueryFilter_invalidRegex() {
	_, err := cache.NewQueryFilter(cache.QueryFilter{GroupID: 1, Regex: cache.String("(")})
	fmt.Println(errors.Is(err, cache.ErrInvalidFilter))
	// Output:
	// true
}

func ExampleHotColdCache_Get() {
	now := time.Unix(1_700_000_000, 0)
	c, err := cache.New(cache.Config{
		HotSize:  2,
		ColdSize: 4,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ctx := context.Background()

	// Cached for all users, the last hour up to two minutes ago.
	_ = c.Put(ctx, &cache.Entry{
		GroupID:    1001,
		TimeAfter:  cache.Int64(now.Unix() - 3600),
		TimeBefore: cache.Int64(now.Unix() - 120),
		Messages: []cache.Message{
			{ID: 2, GroupID: 1001, UserID: 7, PlainText: "deploy done", Time: now.Unix() - 300},
			{ID: 1, GroupID: 1001, UserID: 8, PlainText: "deploying", Time: now.Unix() - 900},
		},
		TotalCount: 2,
	})

	// "What did user 7 say in the last hour?"
	res, ok := c.Get(ctx, cache.QueryFilter{
		GroupID:   1001,
		UserID:    cache.Int64(7),
		TimeAfter: cache.Int64(now.Unix() - 3600),
	})
	fmt.Println(ok, res.MatchType, res.IsFuzzy, len(res.Messages), res.Messages[0].PlainText)

	// The same question pinned to wall-clock times cannot be answered fuzzily.
	res, _ = c.Get(ctx, cache.QueryFilter{
		GroupID:         1001,
		UserID:          cache.Int64(7),
		TimeAfter:       cache.Int64(now.Unix() - 3600),
		HasAbsoluteTime: true,
	})
	fmt.Println(res.MatchType, res.NeedsIncremental, res.MissingRanges[0].End-res.MissingRanges[0].Start)
	// Output:
	// true fuzzy_time true 1 deploy done
	// partial_overlap true 119
}
