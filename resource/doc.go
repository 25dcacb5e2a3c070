// Package resource holds the per-resource caches a tenant dashboard reads
// from: the tenant list, per-tenant transaction pages and per-tenant user
// pages, plus the current tenant selection.
//
// The tenant list uses stale-while-revalidate: fresh data is served as is,
// stale data is served while one background refresh runs, and absent or
// expired data is fetched in the foreground. Concurrent loads share one
// in-flight fetch.
//
// Page caches key entries by tenant and by a canonical encoding of page and
// filters. A cached page is reused until it is explicitly refreshed.
// Concurrent loads of the same tenant and key share one fetch as well.
//
// All types own their state; several independent Sessions can coexist.
package resource
