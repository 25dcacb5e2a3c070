package cache

import (
	"fmt"
	"time"
)

// Freshness classifies a cached entry's age.
type Freshness int

const (
	// Absent means no entry exists.
	Absent Freshness = iota
	// Fresh entries are served with no further action.
	Fresh
	// Stale entries are served while a background refresh runs.
	Stale
	// Expired entries must be fetched again before use.
	Expired
)

// String returns the cache status name. Absent is reported as "empty".
func (f Freshness) String() string {
	switch f {
	case Absent:
		return "empty"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Policy configures freshness classification.
type Policy struct {
	// FreshFor is the window after a fetch during which an entry is fresh.
	FreshFor time.Duration

	// StaleFor is the window after a fetch during which a non-empty entry may
	// still be served while it is refreshed. Must be >= FreshFor.
	StaleFor time.Duration

	// Stable treats every present entry as fresh until explicitly deleted.
	// The windows are ignored.
	Stable bool
}

// TenantListPolicy returns the tenant list policy.
// FreshFor: 5 minutes, StaleFor: 10 minutes
func TenantListPolicy() Policy {
	return Policy{
		FreshFor: 5 * time.Minute,
		StaleFor: 10 * time.Minute,
	}
}

// StablePolicy returns a policy under which cached pages never expire on
// their own; they are replaced only by a forced refresh.
func StablePolicy() Policy {
	return Policy{Stable: true}
}

// Validate checks the windows of a time-based policy.
func (p Policy) Validate() error {
	if p.Stable {
		return nil
	}
	if p.FreshFor <= 0 || p.StaleFor <= 0 {
		return fmt.Errorf("%w: windows must be positive (fresh=%s, stale=%s)", ErrInvalidPolicy, p.FreshFor, p.StaleFor)
	}
	if p.FreshFor > p.StaleFor {
		return fmt.Errorf("%w: fresh window %s exceeds stale window %s", ErrInvalidPolicy, p.FreshFor, p.StaleFor)
	}
	return nil
}

// Classify returns the freshness of an entry fetched at fetchedAt.
// present is false when no entry exists. empty reports whether the cached
// payload is empty; empty payloads are never served as stale.
func (p Policy) Classify(fetchedAt time.Time, present, empty bool, now time.Time) Freshness {
	if !present {
		return Absent
	}
	if p.Stable {
		return Fresh
	}

	age := now.Sub(fetchedAt)
	switch {
	case age < p.FreshFor:
		return Fresh
	case age < p.StaleFor && !empty:
		return Stale
	default:
		return Expired
	}
}

// Action is what a cache should do for a load request.
type Action int

const (
	// Serve returns the cached entry as is.
	Serve Action = iota
	// Revalidate returns the cached entry and refreshes it in the background.
	Revalidate
	// Fetch loads in the foreground, joining an in-flight fetch if any.
	Fetch
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Serve:
		return "serve"
	case Revalidate:
		return "revalidate"
	case Fetch:
		return "fetch"
	default:
		return "unknown"
	}
}

// Decide maps a freshness classification to an action. A forced load always
// fetches.
func Decide(f Freshness, force bool) Action {
	if force {
		return Fetch
	}
	switch f {
	case Fresh:
		return Serve
	case Stale:
		return Revalidate
	default:
		return Fetch
	}
}
