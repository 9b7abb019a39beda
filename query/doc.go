// Package query answers chat-history queries from the two-tier cache and
// falls back to the record store.
//
// A query is authorized and turned into a cache.QueryFilter, then looked up
// in the cache. Exact and fuzzy matches are answered from memory. A partial
// match fetches only the missing time ranges and widens the cached entry;
// a miss fetches the whole window and caches it. Store calls run through a
// resilience.Executor and concurrent identical fetches are coalesced.
package query
