package resource

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/model"
	"github.com/jonwraymond/tenantview/observe"
)

// ResourceTenants is the resource name of the tenant list.
const ResourceTenants = "tenants"

const tenantsFlightKey = "tenants"

// TenantFetcher lists the tenants visible to the caller.
type TenantFetcher interface {
	Tenants(ctx context.Context) ([]model.Tenant, error)
}

// TenantFetcherFunc adapts a function to TenantFetcher.
type TenantFetcherFunc func(ctx context.Context) ([]model.Tenant, error)

// Tenants implements TenantFetcher.
func (f TenantFetcherFunc) Tenants(ctx context.Context) ([]model.Tenant, error) {
	return f(ctx)
}

// LoadOptions tunes a single load.
type LoadOptions struct {
	// Force fetches regardless of freshness. A forced load still joins a
	// fetch that is already in flight.
	Force bool
}

// TenantList caches the tenant list with stale-while-revalidate semantics
// and keeps a Selection pointed at a listed tenant.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - At most one tenant-list fetch is in flight per TenantList.
//   - Failed background refreshes leave data and Err unchanged.
type TenantList struct {
	fetcher   TenantFetcher
	policy    cache.Policy
	selection *Selection
	opts      options

	flight cache.Flight[[]model.Tenant]

	mu        sync.RWMutex
	data      []model.Tenant
	fetchedAt time.Time
	present   bool
	loading   int
	err       error
}

// NewTenantList creates a tenant list cache. A nil selection gets a fresh
// one; the zero policy means cache.TenantListPolicy.
func NewTenantList(fetcher TenantFetcher, policy cache.Policy, selection *Selection, opts ...Option) (*TenantList, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if policy == (cache.Policy{}) {
		policy = cache.TenantListPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if selection == nil {
		selection = NewSelection()
	}
	return &TenantList{
		fetcher:   fetcher,
		policy:    policy,
		selection: selection,
		opts:      buildOptions(opts),
	}, nil
}

// Load brings the tenant list up to date according to the freshness policy.
//
// Fresh data is a no-op. Stale data returns immediately and starts one
// background refresh. Absent or expired data, or a forced load, fetches in
// the foreground, joining any fetch already in flight; its error is both
// returned and kept in Err.
func (t *TenantList) Load(ctx context.Context, opts LoadOptions) error {
	f := t.Status()
	meta := observe.FetchMeta{Resource: ResourceTenants, Key: tenantsFlightKey}
	t.opts.mw.Lookup(ctx, meta, f.String())

	switch cache.Decide(f, opts.Force) {
	case cache.Serve:
		return nil
	case cache.Revalidate:
		t.revalidate(ctx)
		return nil
	}
	return t.fetch(ctx, opts.Force)
}

// Refresh forces a foreground load.
func (t *TenantList) Refresh(ctx context.Context) error {
	return t.Load(ctx, LoadOptions{Force: true})
}

func (t *TenantList) fetch(ctx context.Context, force bool) error {
	t.mu.Lock()
	t.loading++
	t.err = nil
	t.mu.Unlock()

	_, _, err := t.flight.Do(ctx, tenantsFlightKey, t.fetchFunc(false, force))
	var bg *backgroundError
	if errors.As(err, &bg) {
		// The joined flight was a background refresh and logged its failure
		// as such; this caller waited on it.
		err = bg.err
		meta := observe.FetchMeta{Resource: ResourceTenants, Key: tenantsFlightKey}
		t.opts.mw.Logger().WithResource(meta).Error(ctx, "fetch failed",
			observe.Field{Key: "error", Value: err},
			observe.Field{Key: "joined_background", Value: true})
	}

	t.mu.Lock()
	t.loading--
	if err != nil && !abandoned(ctx, err) {
		t.err = err
	}
	t.mu.Unlock()
	return err
}

func (t *TenantList) revalidate(ctx context.Context) {
	t.flight.Start(ctx, tenantsFlightKey, t.fetchFunc(true, false), func(res cache.Result[[]model.Tenant]) {
		if res.Err == nil || t.opts.onBackgroundError == nil {
			return
		}
		err := res.Err
		var bg *backgroundError
		if errors.As(err, &bg) {
			err = bg.err
		}
		t.opts.onBackgroundError(ResourceTenants, err)
	})
}

// fetchFunc returns the flight body. Whoever starts the flight decides
// whether it is a background refresh; joiners share its outcome. Unforced
// flights return the cached list when a flight that settled after the
// caller's lookup already made it fresh.
func (t *TenantList) fetchFunc(background, force bool) func(context.Context) ([]model.Tenant, error) {
	meta := observe.FetchMeta{Resource: ResourceTenants, Key: tenantsFlightKey, Background: background}
	return func(ctx context.Context) ([]model.Tenant, error) {
		if !force && t.Status() == cache.Fresh {
			return t.Data(), nil
		}
		var tenants []model.Tenant
		err := t.opts.mw.Wrap(func(ctx context.Context, _ observe.FetchMeta) error {
			var err error
			tenants, err = t.fetcher.Tenants(ctx)
			return err
		})(ctx, meta)
		if err != nil {
			if background {
				return nil, &backgroundError{err: err}
			}
			return nil, err
		}
		if tenants == nil {
			tenants = []model.Tenant{}
		}
		t.apply(tenants, t.opts.now(), !background)
		return tenants, nil
	}
}

// apply stores a fetched list. Only foreground fetches may select a tenant
// when none is selected, so a cleared selection survives background
// refreshes.
func (t *TenantList) apply(tenants []model.Tenant, fetchedAt time.Time, foreground bool) {
	t.mu.Lock()
	if t.present && fetchedAt.Before(t.fetchedAt) {
		t.mu.Unlock()
		return
	}
	t.data = tenants
	t.fetchedAt = fetchedAt
	t.present = true
	t.err = nil
	t.mu.Unlock()

	t.selection.reconcile(tenants, foreground)
}

// Status classifies the cached list at the current time.
func (t *TenantList) Status() cache.Freshness {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.policy.Classify(t.fetchedAt, t.present, len(t.data) == 0, t.opts.now())
}

// Data returns a copy of the cached tenants, or nil before the first
// successful fetch.
func (t *TenantList) Data() []model.Tenant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.data)
}

// FetchedAt returns when the cached list was fetched, or the zero time.
func (t *TenantList) FetchedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fetchedAt
}

// Loading reports whether a foreground load is in progress.
func (t *TenantList) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading > 0
}

// Err returns the error of the last foreground load, or nil.
func (t *TenantList) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Selection returns the selection this list maintains.
func (t *TenantList) Selection() *Selection {
	return t.selection
}

// Selected returns the selected tenant's record when the selection names a
// tenant present in the cached list.
func (t *TenantList) Selected() (model.Tenant, bool) {
	id, ok := t.selection.ID()
	if !ok {
		return model.Tenant{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := slices.IndexFunc(t.data, func(tn model.Tenant) bool { return tn.ID == id })
	if i < 0 {
		return model.Tenant{}, false
	}
	return t.data[i], true
}

// abandoned reports whether err only means the caller stopped waiting; the
// shared fetch keeps running and settles the state itself.
func abandoned(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// backgroundError marks the failure of a background refresh so that
// foreground callers that joined it can report it as their own.
type backgroundError struct {
	err error
}

func (e *backgroundError) Error() string { return e.err.Error() }
func (e *backgroundError) Unwrap() error { return e.err }
