package cache

import (
	"context"
	"errors"
	"fmt"
)

// Capacity and filter limits.
const (
	// DefaultHotSize is the hot tier capacity used when Config.HotSize is zero.
	DefaultHotSize = 32

	// DefaultColdSize is the cold tier capacity used when Config.ColdSize is zero.
	DefaultColdSize = 256

	// MaxMessagesPerEntry caps the message sample kept by a single entry.
	MaxMessagesPerEntry = 500

	// DefaultLimit is the result limit of a filter that does not set one.
	DefaultLimit = 20

	// MaxLimit is the largest result limit a filter may carry.
	MaxLimit = 100
)

// Time coverage thresholds.
const (
	// FuzzyOverlapThreshold is the overlap ratio above which a relative query
	// may be answered from a slightly stale entry.
	FuzzyOverlapThreshold = 0.90

	// FuzzyMaxUncovered is the most recent time, in seconds, a fuzzy answer may miss.
	FuzzyMaxUncovered = 600

	// PartialOverlapThreshold is the overlap ratio above which an entry is
	// reused and only the missing ranges are fetched.
	PartialOverlapThreshold = 0.40
)

// Sentinel errors for cache operations.
var (
	ErrNilCache      = errors.New("cache: cache is nil")
	ErrNilEntry      = errors.New("cache: entry is nil")
	ErrInvalidFilter = errors.New("cache: invalid filter")
	ErrInvalidConfig = errors.New("cache: invalid config")
	ErrPersistence   = errors.New("cache: persistence failed")
)

// InvalidFilterError reports a filter rejected at construction time.
type InvalidFilterError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidFilterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache: invalid filter: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("cache: invalid filter: %s: %s", e.Field, e.Reason)
}

func (e *InvalidFilterError) Unwrap() error { return e.Err }

// Is matches ErrInvalidFilter.
func (e *InvalidFilterError) Is(target error) bool { return target == ErrInvalidFilter }

// PersistenceError reports a failed write or removal of the cold tier file.
// The in-memory tiers are never rolled back when it is returned.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache: persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Cache is the contract of a query result cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; "no usable cache" is (nil, false).
// - Durability: Put, UpdateEntry and Clear may return a *PersistenceError after
// the in-memory change has been applied.
type Cache interface {
	// Get looks up an entry that can answer the filter, fully or partly.
	Get(ctx context.Context, filter QueryFilter) (*Result, bool)

	// Put inserts or overwrites an entry in the hot tier.
	Put(ctx context.Context, entry *Entry) error

	// UpdateEntry replaces the entry stored under oldKey.
	UpdateEntry(ctx context.Context, oldKey string, entry *Entry) error

	// Clear drops both tiers and the persisted state.
	Clear(ctx context.Context) error

	// Stats reports tier sizes and counters.
	Stats() Stats
}
