package health

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/chatquery/cache"
)

// CacheSource is the part of the query cache a CacheChecker inspects.
type CacheSource interface {
	Stats() cache.Stats
	PersistDir() string
}

// CacheChecker reports tier occupancy and whether the cold tier can be
// persisted.
type CacheChecker struct {
	source CacheSource
}

// NewCacheChecker creates a checker over source.
func NewCacheChecker(source CacheSource) *CacheChecker {
	return &CacheChecker{source: source}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check is degraded when the persistence directory rejects writes or when
// both tiers are full and entries are being evicted.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if c.source == nil {
		return Unhealthy("cache not configured", cache.ErrNilCache)
	}
	if err := ctx.Err(); err != nil {
		return Unhealthy("check cancelled", err)
	}

	stats := c.source.Stats()
	details := map[string]any{
		"hot_entries":   stats.HotCount,
		"hot_capacity":  stats.HotCapacity,
		"cold_entries":  stats.ColdCount,
		"cold_capacity": stats.ColdCapacity,
		"hits":          stats.Hits + stats.FuzzyHits + stats.PartialHits,
		"misses":        stats.Misses,
		"evictions":     stats.Evictions,
	}

	dir := c.source.PersistDir()
	if dir != "" {
		details["persist_dir"] = dir
		if err := probeWritable(dir); err != nil {
			r := Degraded("cold tier cannot be persisted")
			r.Error = err
			return r.WithDetails(details)
		}
	}

	if stats.HotCount >= stats.HotCapacity && stats.ColdCount >= stats.ColdCapacity && stats.Evictions > 0 {
		return Degraded("both tiers full, entries are being evicted").WithDetails(details)
	}
	return Healthy("cache ok").WithDetails(details)
}

// probeWritable creates dir if needed and writes a scratch file into it.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	return nil
}
