package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/chatquery/access"
	"github.com/jonwraymond/chatquery/cache"
	"github.com/jonwraymond/chatquery/observe"
	"github.com/jonwraymond/chatquery/resilience"
	"github.com/jonwraymond/chatquery/store"
)

// Source names where an answer came from.
type Source string

const (
	SourceCache       Source = "cache"
	SourceFuzzy       Source = "fuzzy"
	SourceIncremental Source = "incremental"
	SourceStore       Source = "store"
)

// Answer is the result of one query.
type Answer struct {
	QueryID    string            `json:"query_id"`
	Filter     cache.QueryFilter `json:"-"`
	Conditions string            `json:"conditions"`
	Messages   []cache.Message   `json:"messages"`
	Total      int               `json:"total"`
	Source     Source            `json:"source"`
}

// Options configures a Service.
type Options struct {
	// Cache holds query results. Required.
	Cache cache.Cache

	// Store answers cache misses. Required.
	Store store.RecordStore

	// Authorizer resolves the target group. Default: access.NewScopeAuthorizer().
	Authorizer access.Authorizer

	// Executor wraps store calls. Nil runs them directly.
	Executor *resilience.Executor

	// Middleware traces, counts and logs each query. Default: no-op.
	Middleware *observe.Middleware

	// Location reads absolute times. Default: DefaultLocation.
	Location *time.Location

	// Clock supplies "now". Default: time.Now.
	Clock func() time.Time

	// FetchLimit caps the messages fetched for one cache entry.
	// Default: cache.MaxMessagesPerEntry.
	FetchLimit int
}

// Service executes chat-history queries.
//
// Contract:
//   - Concurrency: Execute is safe for concurrent use.
//   - Errors: authorization and filter errors are returned as is; store
//     failures match ErrFetchFailed. Cache persistence failures are logged
//     and never fail a query.
type Service struct {
	cache      cache.Cache
	store      store.RecordStore
	authz      access.Authorizer
	exec       *resilience.Executor
	mw         *observe.Middleware
	loc        *time.Location
	now        func() time.Time
	fetchLimit int
	flight     singleflight.Group
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Cache == nil {
		return nil, ErrMissingCache
	}
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.Authorizer == nil {
		opts.Authorizer = access.NewScopeAuthorizer()
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	if opts.Location == nil {
		opts.Location = DefaultLocation
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = cache.MaxMessagesPerEntry
	}
	return &Service{
		cache:      opts.Cache,
		store:      opts.Store,
		authz:      opts.Authorizer,
		exec:       opts.Executor,
		mw:         opts.Middleware,
		loc:        opts.Location,
		now:        opts.Clock,
		fetchLimit: opts.FetchLimit,
	}, nil
}

// Location returns the zone absolute times are read and rendered in.
func (s *Service) Location() *time.Location { return s.loc }

// Execute authorizes id, builds the filter from p and answers it.
func (s *Service) Execute(ctx context.Context, id *access.Identity, p Params) (*Answer, error) {
	groupID, err := s.authz.Authorize(ctx, &access.Request{Subject: id, GroupID: p.GroupID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	filter, err := BuildFilter(groupID, p, now, s.loc)
	if err != nil {
		return nil, err
	}

	meta := observe.QueryMeta{
		ID:         uuid.NewString(),
		Operation:  "query",
		GroupID:    groupID,
		UserID:     id.UserID,
		Conditions: filter.FormatConditions(),
	}
	log := s.mw.Logger().WithQuery(meta)

	var answer *Answer
	run := s.mw.Wrap(func(ctx context.Context, meta observe.QueryMeta) (string, error) {
		a, err := s.answer(ctx, log, filter, now.Unix())
		if err != nil {
			return "", err
		}
		answer = a
		return string(a.Source), nil
	})
	if _, err := run(ctx, meta); err != nil {
		return nil, err
	}

	answer.QueryID = meta.ID
	answer.Filter = filter
	answer.Conditions = meta.Conditions
	return answer, nil
}

func (s *Service) answer(ctx context.Context, log observe.Logger, q cache.QueryFilter, now int64) (*Answer, error) {
	res, ok := s.cache.Get(ctx, q)
	if !ok {
		return s.fetchAll(ctx, log, q, now)
	}

	switch res.MatchType {
	case cache.ExactMatch:
		return fromEntry(&q, res.Entry, res.Messages, SourceCache, now), nil
	case cache.FuzzyTime:
		return fromEntry(&q, res.Entry, res.Messages, SourceFuzzy, now), nil
	case cache.PartialOverlap:
		return s.fetchMissing(ctx, log, q, res, now)
	default:
		return s.fetchAll(ctx, log, q, now)
	}
}

// fetchAll answers a miss: the whole window is fetched and cached with its
// end pinned to now.
func (s *Service) fetchAll(ctx context.Context, log observe.Logger, q cache.QueryFilter, now int64) (*Answer, error) {
	before := now
	if q.TimeBefore != nil {
		before = *q.TimeBefore
	}
	pinned := q
	pinned.TimeBefore = cache.Int64(before)
	key := cache.NewEntry(pinned, nil, 0).Key()

	v, err := s.coalesce(ctx, "all:"+key, func(ctx context.Context) (any, error) {
		res, err := s.fetch(ctx, store.FetchRequestFor(&q, q.TimeAfter, &before, s.fetchLimit))
		if err != nil {
			return nil, err
		}
		entry := cache.NewEntry(pinned, res.Messages, res.Total)
		if err := s.cache.Put(ctx, entry); err != nil {
			log.Warn(ctx, "cache put failed", observe.Field{Key: "error", Value: err.Error()})
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry := v.(*cache.Entry)
	return &Answer{
		Messages: clip(entry.Messages, q.Limit),
		Total:    entry.TotalCount,
		Source:   SourceStore,
	}, nil
}

// fetchMissing answers a partial match: only the missing ranges are fetched
// with the stored entry's own filter, merged in, and the entry is widened.
func (s *Service) fetchMissing(ctx context.Context, log observe.Logger, q cache.QueryFilter, res *cache.Result, now int64) (*Answer, error) {
	key := res.Key
	for _, r := range res.MissingRanges {
		key += fmt.Sprintf("|%d-%d", r.Start, r.End)
	}

	v, err := s.coalesce(ctx, "missing:"+key, func(ctx context.Context) (any, error) {
		ef := res.Entry.Filter()
		messages := res.Entry.Messages
		total := res.Entry.TotalCount
		for _, r := range res.MissingRanges {
			got, err := s.fetch(ctx, store.FetchRequestFor(&ef, cache.Int64(r.Start), cache.Int64(r.End), s.fetchLimit))
			if err != nil {
				return nil, err
			}
			messages = mergeMessages(messages, got.Messages)
			total += got.Total
		}

		updated := widen(res.Entry, &q, now, messages, total)
		if err := s.cache.UpdateEntry(ctx, res.Key, updated); err != nil {
			log.Warn(ctx, "cache update failed",
				observe.Field{Key: "key", Value: res.Key},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	updated := v.(*cache.Entry)
	return fromEntry(&q, updated, updated.Narrow(&q, now), SourceIncremental, now), nil
}

// fetch runs one store call through the executor. Requests the store
// rejects are not retried.
func (s *Service) fetch(ctx context.Context, req store.FetchRequest) (store.FetchResult, error) {
	res, err := resilience.Do(ctx, s.exec, func(ctx context.Context) (store.FetchResult, error) {
		res, err := s.store.Fetch(ctx, req)
		if errors.Is(err, store.ErrInvalidRequest) || errors.Is(err, store.ErrClosed) {
			return res, resilience.Permanent(err)
		}
		return res, err
	})
	if err != nil {
		return store.FetchResult{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return res, nil
}

// coalesce shares one run of fn among concurrent callers with the same key.
// fn runs detached from the first caller's cancellation so a departing
// caller does not fail the others; the executor's timeout still bounds it.
func (s *Service) coalesce(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fromEntry builds an answer from narrowed cached messages. The stored total
// is reported when the entry was computed for exactly this filter and
// window; otherwise the narrowed sample is counted.
func fromEntry(q *cache.QueryFilter, entry *cache.Entry, narrowed []cache.Message, source Source, now int64) *Answer {
	total := len(narrowed)
	if sameFields(entry, q) && entry.Window(now) == q.Window(now) {
		total = entry.TotalCount
	}
	return &Answer{
		Messages: clip(narrowed, q.Limit),
		Total:    total,
		Source:   source,
	}
}

// sameFields reports whether entry was computed for q's user, content and
// regex, ignoring time.
func sameFields(entry *cache.Entry, q *cache.QueryFilter) bool {
	a := entry.CopyFilterOnly()
	a.TimeAfter, a.TimeBefore = nil, nil
	b := cache.NewEntry(*q, nil, 0)
	b.TimeAfter, b.TimeBefore = nil, nil
	return a.Key() == b.Key()
}
