// Package cache implements a two-tier result cache for chat-history queries.
//
// Entries are keyed by the exact filter they were computed for, but lookups
// match weakly: an entry cached for a broader filter (all users, a shorter
// content substring, a wider time window) can answer a narrower query after
// filtering its messages down. Time coverage is classified as exact, fuzzy
// (a relative query missing only a few recent minutes) or partial, in which
// case the caller fetches the missing ranges and calls UpdateEntry.
//
// New entries go to a small hot tier. Its least recently used entry is
// demoted to a larger cold tier, whose least recently used entry is evicted.
// Only the cold tier is persisted; a cold hit is promoted back to hot.
package cache
