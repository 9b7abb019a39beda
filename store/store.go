package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jonwraymond/chatquery/cache"
)

// TableName is the message table both backends read.
const TableName = "chat_messages"

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrUnknownDriver indicates a driver name Open does not support.
	ErrUnknownDriver = errors.New("store: unknown driver")

	// ErrInvalidRequest indicates a FetchRequest that cannot be executed.
	ErrInvalidRequest = errors.New("store: invalid request")

	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("store: closed")
)

// FetchRequest selects messages of one group.
type FetchRequest struct {
	GroupID int64
	UserID  *int64
	Content string
	Pattern *regexp.Regexp
	After   *int64
	Before  *int64
	Limit   int
}

// FetchRequestFor builds the request answering f inside [after, before].
func FetchRequestFor(f *cache.QueryFilter, after, before *int64, limit int) FetchRequest {
	req := FetchRequest{
		GroupID: f.GroupID,
		UserID:  f.UserID,
		Pattern: f.Pattern(),
		After:   after,
		Before:  before,
		Limit:   limit,
	}
	if f.Content != nil {
		req.Content = *f.Content
	}
	return req
}

// Validate checks that the request names a group and a positive limit.
func (r FetchRequest) Validate() error {
	if r.GroupID == 0 {
		return fmt.Errorf("%w: group id is required", ErrInvalidRequest)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRequest, r.Limit)
	}
	if r.After != nil && r.Before != nil && *r.After > *r.Before {
		return fmt.Errorf("%w: after %d is later than before %d", ErrInvalidRequest, *r.After, *r.Before)
	}
	return nil
}

// FetchResult holds up to Limit messages, newest first, and the number of
// messages that matched in total.
type FetchResult struct {
	Messages []cache.Message
	Total    int
}

// RecordStore is the read side of the message store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Fetch must honor cancellation.
type RecordStore interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// Store is a RecordStore backed by a database.
type Store interface {
	RecordStore
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open connects to the named driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// collector applies the regex and limit while rows are scanned.
type collector struct {
	pattern *regexp.Regexp
	limit   int
	result  FetchResult
}

func newCollector(req FetchRequest) *collector {
	return &collector{
		pattern: req.Pattern,
		limit:   req.Limit,
		result:  FetchResult{Messages: make([]cache.Message, 0, min(req.Limit, 64))},
	}
}

func (c *collector) add(m cache.Message) {
	if c.pattern != nil && !c.pattern.MatchString(m.PlainText) {
		return
	}
	c.result.Total++
	if len(c.result.Messages) < c.limit {
		c.result.Messages = append(c.result.Messages, m)
	}
}
