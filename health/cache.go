package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/resource"
	"github.com/jonwraymond/tenantview/resilience"
)

// TenantListState is the part of a tenant list cache the checker reads.
type TenantListState interface {
	Status() cache.Freshness
	FetchedAt() time.Time
	Loading() bool
	Err() error
}

// PageState is the part of a page cache the checker reads.
type PageState interface {
	Loading() bool
	Err() error
	Key() string
}

var (
	_ TenantListState = (*resource.TenantList)(nil)
	_ PageState       = (*resource.Transactions)(nil)
	_ PageState       = (*resource.Users)(nil)
)

// TenantListChecker reports the tenant list's freshness. Fresh data is
// healthy and stale data degraded. Missing or expired data is unhealthy,
// except while a first load is running, which is degraded.
func TenantListChecker(tl TenantListState) Checker {
	return NewCheckerFunc(resource.ResourceTenants, func(context.Context) Result {
		f := tl.Status()
		details := map[string]any{"freshness": f.String()}
		if at := tl.FetchedAt(); !at.IsZero() {
			details["fetched_at"] = at.UTC().Format(time.RFC3339)
		}

		var r Result
		switch f {
		case cache.Fresh:
			r = Healthy("tenant list is fresh")
		case cache.Stale:
			r = Degraded("serving stale tenant list")
		case cache.Absent:
			if tl.Loading() {
				r = Degraded("tenant list is loading")
			} else {
				r = Unhealthy("tenant list not loaded", tl.Err())
			}
		default:
			r = Unhealthy("tenant list expired", tl.Err())
		}
		if err := tl.Err(); err != nil && r.Status == StatusHealthy {
			r = Degraded("last tenant list load failed").WithError(err)
		}
		return r.WithDetails(details)
	})
}

// PageChecker reports a page cache as degraded while its last load failed.
func PageChecker(name string, p PageState) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		details := map[string]any{"key": p.Key(), "loading": p.Loading()}
		if err := p.Err(); err != nil {
			return Degraded(fmt.Sprintf("last %s load failed", name)).WithError(err).WithDetails(details)
		}
		return Healthy(name + " loads succeed").WithDetails(details)
	})
}

// BreakerChecker follows a circuit breaker: closed is healthy, half-open
// degraded and open unhealthy.
func BreakerChecker(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{"state": m.State.String(), "failures": m.Failures, "trips": m.Trips}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit probing").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
