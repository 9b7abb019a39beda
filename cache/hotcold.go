package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/jonwraymond/chatquery/observe"
)

// Config configures a HotColdCache.
type Config struct {
	// HotSize is the hot tier capacity. Default: DefaultHotSize.
	HotSize int

	// ColdSize is the cold tier capacity. Default: DefaultColdSize.
	ColdSize int

	// Path is the file the cold tier is persisted to.
	// If empty, the cold tier is memory-only.
	Path string

	// MaxMessagesPerEntry caps each entry's message sample.
	// Default: MaxMessagesPerEntry.
	MaxMessagesPerEntry int

	// Logger receives persistence warnings. Default: no-op.
	Logger observe.Logger

	// Clock supplies "now" for open-ended windows. Default: time.Now.
	Clock func() time.Time
}

// Tier names where an entry lives.
type Tier int

const (
	// TierNone means the key is in neither tier.
	TierNone Tier = iota
	// TierHot is the small, recently used tier.
	TierHot
	// TierCold is the larger, persisted tier.
	TierCold
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierCold:
		return "cold"
	default:
		return "none"
	}
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	HotCount     int    `json:"hot_count"`
	ColdCount    int    `json:"cold_count"`
	HotCapacity  int    `json:"hot_capacity"`
	ColdCapacity int    `json:"cold_capacity"`
	Hits         uint64 `json:"hits"`
	FuzzyHits    uint64 `json:"fuzzy_hits"`
	PartialHits  uint64 `json:"partial_hits"`
	Misses       uint64 `json:"misses"`
	Promotions   uint64 `json:"promotions"`
	Demotions    uint64 `json:"demotions"`
	Evictions    uint64 `json:"evictions"`
}

// Result is what Get returns for a usable entry.
type Result struct {
	// Messages is the stored sample narrowed to the query's user, content
	// and covered window.
	Messages []Message

	// IsFuzzy is set when a relative query was answered without its most
	// recent few minutes.
	IsFuzzy bool

	// NeedsIncremental is set when MissingRanges must be fetched.
	NeedsIncremental bool

	// MissingRanges are the parts of the query window the entry lacks.
	MissingRanges []TimeRange

	MatchType MatchType

	// Key identifies the matched entry for UpdateEntry.
	Key string

	// Tier is where the entry was found, before promotion.
	Tier Tier

	// Entry is a copy of the matched entry, for merging fetched ranges.
	Entry *Entry
}

// HotColdCache is a two-tier LRU cache of query results. Lookups weakly
// match filters against stored entries; only the cold tier is persisted.
type HotColdCache struct {
	mu   sync.Mutex
	hot  *simplelru.LRU[string, *Entry]
	cold *simplelru.LRU[string, *Entry]
	gen  uint64

	hotSize     int
	coldSize    int
	maxMessages int

	disk   *diskStore
	logger observe.Logger
	now    func() time.Time

	hits, fuzzyHits, partialHits, misses uint64
	promotions, demotions, evictions     uint64
}

// New creates a cache and loads the persisted cold tier, if any. A missing,
// unreadable or corrupt file leaves the cold tier empty.
func New(cfg Config) (*HotColdCache, error) {
	if cfg.HotSize < 0 || cfg.ColdSize < 0 || cfg.MaxMessagesPerEntry < 0 {
		return nil, fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	}
	if cfg.HotSize == 0 {
		cfg.HotSize = DefaultHotSize
	}
	if cfg.ColdSize == 0 {
		cfg.ColdSize = DefaultColdSize
	}
	if cfg.MaxMessagesPerEntry == 0 {
		cfg.MaxMessagesPerEntry = MaxMessagesPerEntry
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	hot, err := simplelru.NewLRU[string, *Entry](cfg.HotSize, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: hot tier: %v", ErrInvalidConfig, err)
	}
	cold, err := simplelru.NewLRU[string, *Entry](cfg.ColdSize, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cold tier: %v", ErrInvalidConfig, err)
	}

	c := &HotColdCache{
		hot:         hot,
		cold:        cold,
		hotSize:     cfg.HotSize,
		coldSize:    cfg.ColdSize,
		maxMessages: cfg.MaxMessagesPerEntry,
		disk:        newDiskStore(cfg.Path),
		logger:      cfg.Logger,
		now:         cfg.Clock,
	}
	c.loadCold()
	return c, nil
}

func (c *HotColdCache) loadCold() {
	records, err := c.disk.load()
	if err != nil {
		c.logger.Warn(context.Background(), "discarding unreadable cache file",
			observe.Field{Key: "path", Value: c.disk.path},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	for _, r := range records {
		c.cold.Remove(r.Key)
		if c.cold.Len() >= c.coldSize {
			c.cold.RemoveOldest()
		}
		c.cold.Add(r.Key, r.Entry.clone(c.maxMessages))
	}
	if len(records) > 0 {
		c.logger.Debug(context.Background(), "loaded cold tier",
			observe.Field{Key: "path", Value: c.disk.path},
			observe.Field{Key: "entries", Value: c.cold.Len()},
		)
	}
}

// Get finds the best stored entry for filter, searching hot then cold, most
// recent first. A cold hit is promoted to hot. Get never errors.
func (c *HotColdCache) Get(ctx context.Context, filter QueryFilter) (*Result, bool) {
	if c == nil {
		return nil, false
	}
	q := filter
	now := c.now().Unix()

	c.mu.Lock()
	key, tier, entry, cov, ok := c.findLocked(&q, now)
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	var snap coldSnapshot
	promoted := tier == TierCold
	if promoted {
		c.cold.Remove(key)
		c.insertHotLocked(key, entry)
		c.promotions++
		snap = c.snapshotLocked()
	} else {
		c.hot.Get(key)
	}
	switch cov.match {
	case ExactMatch:
		c.hits++
	case FuzzyTime:
		c.fuzzyHits++
	case PartialOverlap:
		c.partialHits++
	}
	c.mu.Unlock()

	if promoted {
		if err := c.disk.save(snap); err != nil {
			c.logger.Warn(ctx, "persist cold tier after promotion failed",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	msgs := []Message{}
	if window, ok := cov.stored.Intersect(cov.query); ok {
		msgs = filterMessages(entry.Messages, &q, window)
	}
	return &Result{
		Messages:         msgs,
		IsFuzzy:          cov.match == FuzzyTime,
		NeedsIncremental: cov.match == PartialOverlap,
		MissingRanges:    cov.missing,
		MatchType:        cov.match,
		Key:              key,
		Tier:             tier,
		Entry:            entry.clone(0),
	}, true
}

// findLocked scans both tiers for the best usable entry. Ties keep the first
// candidate found, so hot wins over cold and recent over old.
func (c *HotColdCache) findLocked(q *QueryFilter, now int64) (string, Tier, *Entry, coverage, bool) {
	var (
		bestKey   string
		bestTier  Tier
		bestEntry *Entry
		best      coverage
		found     bool
	)

	scan := func(tier Tier, lru *simplelru.LRU[string, *Entry]) {
		keys := lru.Keys()
		for i := len(keys) - 1; i >= 0; i-- {
			e, ok := lru.Peek(keys[i])
			if !ok {
				continue
			}
			cov := evaluate(e, q, now)
			if cov.match == NoMatch {
				continue
			}
			if !found || cov.better(best) {
				bestKey, bestTier, bestEntry, best, found = keys[i], tier, e, cov, true
			}
		}
	}
	scan(TierHot, c.hot)
	scan(TierCold, c.cold)

	return bestKey, bestTier, bestEntry, best, found
}

// checkEntry rejects entries no query could ever match.
func checkEntry(e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	if e.GroupID == 0 {
		return &InvalidFilterError{Field: "group", Reason: "group id is required"}
	}
	return nil
}

// Put stores a copy of entry in the hot tier, truncated to the per-entry
// message cap; the oldest messages are dropped. The cold tier file is rewritten if the insert demoted or
// evicted anything.
func (c *HotColdCache) Put(_ context.Context, entry *Entry) error {
	if c == nil {
		return ErrNilCache
	}
	if err := checkEntry(entry); err != nil {
		return err
	}
	stored := entry.clone(c.maxMessages)
	key := stored.Key()

	c.mu.Lock()
	dirty := c.putLocked(key, stored)
	var snap coldSnapshot
	if dirty {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if dirty {
		return c.disk.save(snap)
	}
	return nil
}

// UpdateEntry removes oldKey from whichever tier holds it, then puts entry.
// It is used after an incremental fetch widened an entry's window.
func (c *HotColdCache) UpdateEntry(_ context.Context, oldKey string, entry *Entry) error {
	if c == nil {
		return ErrNilCache
	}
	if err := checkEntry(entry); err != nil {
		return err
	}
	stored := entry.clone(c.maxMessages)
	key := stored.Key()

	c.mu.Lock()
	dirty := false
	if !c.hot.Remove(oldKey) && c.cold.Remove(oldKey) {
		dirty = true
	}
	if c.putLocked(key, stored) {
		dirty = true
	}
	var snap coldSnapshot
	if dirty {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if dirty {
		return c.disk.save(snap)
	}
	return nil
}

// Clear empties both tiers and removes the persisted file.
func (c *HotColdCache) Clear(_ context.Context) error {
	if c == nil {
		return ErrNilCache
	}
	c.mu.Lock()
	c.hot.Purge()
	c.cold.Purge()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	return c.disk.remove(gen)
}

// Stats reports tier sizes and counters.
func (c *HotColdCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		HotCount:     c.hot.Len(),
		ColdCount:    c.cold.Len(),
		HotCapacity:  c.hotSize,
		ColdCapacity: c.coldSize,
		Hits:         c.hits,
		FuzzyHits:    c.fuzzyHits,
		PartialHits:  c.partialHits,
		Misses:       c.misses,
		Promotions:   c.promotions,
		Demotions:    c.demotions,
		Evictions:    c.evictions,
	}
}

// Tier reports which tier holds key, without touching recency.
func (c *HotColdCache) Tier(key string) Tier {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.hot.Contains(key):
		return TierHot
	case c.cold.Contains(key):
		return TierCold
	default:
		return TierNone
	}
}

// Keys lists the keys of a tier, most recent first.
func (c *HotColdCache) Keys(tier Tier) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	switch tier {
	case TierHot:
		keys = c.hot.Keys()
	case TierCold:
		keys = c.cold.Keys()
	default:
		return nil
	}
	out := make([]string, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, keys[i])
	}
	return out
}

// PersistDir returns the directory of the cold tier file, or "" when the
// cache is memory-only.
func (c *HotColdCache) PersistDir() string {
	return c.disk.dir()
}

// putLocked inserts into hot, dropping any cold copy of the same key.
// It reports whether the cold tier changed.
func (c *HotColdCache) putLocked(key string, e *Entry) bool {
	dirty := c.cold.Remove(key)
	if c.insertHotLocked(key, e) {
		dirty = true
	}
	return dirty
}

// insertHotLocked adds to hot, demoting the least recent hot entry when
// full. It reports whether a demotion happened.
func (c *HotColdCache) insertHotLocked(key string, e *Entry) bool {
	demoted := false
	if !c.hot.Contains(key) && c.hot.Len() >= c.hotSize {
		if oldKey, oldEntry, ok := c.hot.RemoveOldest(); ok {
			c.demoteLocked(oldKey, oldEntry)
			demoted = true
		}
	}
	c.hot.Add(key, e)
	return demoted
}

// demoteLocked moves an entry to the most recent end of cold, evicting the
// least recent cold entry when full.
func (c *HotColdCache) demoteLocked(key string, e *Entry) {
	c.demotions++
	if !c.cold.Contains(key) && c.cold.Len() >= c.coldSize {
		if _, _, ok := c.cold.RemoveOldest(); ok {
			c.evictions++
		}
	}
	c.cold.Add(key, e)
}

func (c *HotColdCache) snapshotLocked() coldSnapshot {
	c.gen++
	keys := c.cold.Keys()
	records := make([]persistedRecord, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.cold.Peek(k); ok {
			records = append(records, persistedRecord{Key: k, Entry: e})
		}
	}
	return coldSnapshot{gen: c.gen, records: records}
}

// Ensure HotColdCache implements Cache
var _ Cache = (*HotColdCache)(nil)
