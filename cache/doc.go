// Package cache provides the keyed storage and fetch coordination used by
// the tenant-scoped resource caches.
//
// It provides a canonical page/filter Keyer, a two-level tenant → key Store,
// a freshness Policy with fresh and stale-but-usable windows, and a Flight
// group that coalesces concurrent fetches for the same key.
package cache
