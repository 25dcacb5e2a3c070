// Package health reports the state of a dashboard's caches and of the
// transport in front of the API.
//
// A Checker turns some component state into a Result with a Status of
// Healthy, Degraded or Unhealthy. TenantListChecker maps tenant-list
// freshness to a status: fresh data is healthy, stale data is degraded and
// missing or expired data is unhealthy. PageChecker degrades on the last
// page-load error, and BreakerChecker follows a circuit breaker's state.
//
// An Aggregator runs several checkers concurrently and reduces them to one
// status:
//
//	agg := health.NewAggregator()
//	agg.Register(health.TenantListChecker(session.Tenants))
//	agg.Register(health.PageChecker("transactions", session.Transactions))
//	agg.Register(health.BreakerChecker("api", breaker))
//
//	report := agg.CheckAll(ctx)
//	fmt.Println(report.Status)
//
// RegisterHandlers exposes liveness, readiness and detailed reports over HTTP.
package health
