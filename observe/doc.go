// Package observe provides observability primitives for remote fetches and
// cache lookups.
//
// It is a pure instrumentation library: no fetching and no caching of its
// own. Resource caches wrap their fetches with a Middleware to get a span,
// fetch counters, a duration histogram and a structured log line per fetch.
package observe
