package resource

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/model"
	"github.com/jonwraymond/tenantview/observe"
)

// PageRequest describes one page fetch.
type PageRequest[F cache.FilterSet] struct {
	TenantID string
	Page     int
	PageSize int
	Filters  F
}

// PageFetcher fetches one page of a tenant-scoped listing.
type PageFetcher[T any, F cache.FilterSet] func(ctx context.Context, req PageRequest[F]) (model.Page[T], error)

// View is the cached page for one tenant and key.
type View[T any] struct {
	Data      []T
	Total     int
	FetchedAt time.Time
	// Found is false when nothing is cached for the tenant and key.
	Found bool
}

// Paged caches pages of a tenant-scoped listing keyed by page and filters.
//
// The page, page size and filters are shared across tenants: switching
// tenants keeps them, while changing filters or page size returns to page 1.
// A cached page is served until Refresh; entries are never evicted.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Loads of the same tenant and key share one in-flight fetch.
//   - A load stores its result under the key it started with, so changing
//     page or filters mid-flight never mixes results between keys.
type Paged[T any, F cache.FilterSet] struct {
	resource  string
	fetch     PageFetcher[T, F]
	selection *Selection
	opts      options

	store  *cache.Store[[]T]
	flight cache.Flight[cache.Entry[[]T]]

	mu       sync.RWMutex
	page     int
	pageSize int
	filters  F
	loading  int
	err      error
	// gens counts refreshes per flight key; a fetch stores its page only
	// if no Refresh happened since it started.
	gens map[string]uint64
}

// NewPaged creates a page cache for resource. Current and the *Selected
// helpers read selection; a nil selection gets a fresh one.
func NewPaged[T any, F cache.FilterSet](resource string, fetch PageFetcher[T, F], selection *Selection, pageSize int, opts ...Option) (*Paged[T, F], error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if selection == nil {
		selection = NewSelection()
	}
	return &Paged[T, F]{
		resource:  resource,
		fetch:     fetch,
		selection: selection,
		opts:      buildOptions(opts),
		store:     cache.NewStore[[]T](),
		page:      1,
		pageSize:  pageSize,
	}, nil
}

type snapshot[F cache.FilterSet] struct {
	page     int
	pageSize int
	filters  F
	key      string
}

func (p *Paged[T, F]) snapshot() snapshot[F] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot[F]{
		page:     p.page,
		pageSize: p.pageSize,
		filters:  p.filters,
		key:      p.opts.keyer.Key(p.page, p.filters),
	}
}

// Key returns the cache key for the current page and filters.
func (p *Paged[T, F]) Key() string {
	return p.snapshot().key
}

// Load fetches the current page for tenantID unless it is already cached.
// The error is returned and kept in Err; the store is left untouched on
// failure.
func (p *Paged[T, F]) Load(ctx context.Context, tenantID string) error {
	s := p.snapshot()
	meta := observe.FetchMeta{Resource: p.resource, Tenant: tenantID, Key: s.key}

	if _, ok := p.store.Get(tenantID, s.key); ok {
		p.opts.mw.Lookup(ctx, meta, cache.Fresh.String())
		return nil
	}
	p.opts.mw.Lookup(ctx, meta, cache.Absent.String())

	p.mu.Lock()
	p.loading++
	p.err = nil
	p.mu.Unlock()

	_, _, err := p.flight.Do(ctx, flightKey(tenantID, s.key), p.fetchFunc(tenantID, s, meta))

	p.mu.Lock()
	p.loading--
	if err != nil && !abandoned(ctx, err) {
		p.err = err
	}
	p.mu.Unlock()
	return err
}

// LoadSelected loads the current page for the selected tenant.
func (p *Paged[T, F]) LoadSelected(ctx context.Context) error {
	id, ok := p.selection.ID()
	if !ok {
		return ErrNoTenantSelected
	}
	return p.Load(ctx, id)
}

// Refresh drops the cached current page for tenantID and loads it again.
// A fetch already in flight for the key is not joined, and its result is
// discarded.
func (p *Paged[T, F]) Refresh(ctx context.Context, tenantID string) error {
	key := p.Key()
	fk := flightKey(tenantID, key)

	p.mu.Lock()
	if p.gens == nil {
		p.gens = make(map[string]uint64)
	}
	p.gens[fk]++
	p.mu.Unlock()

	p.flight.Forget(fk)
	p.store.Delete(tenantID, key)
	return p.Load(ctx, tenantID)
}

// RefreshSelected refreshes the current page for the selected tenant.
func (p *Paged[T, F]) RefreshSelected(ctx context.Context) error {
	id, ok := p.selection.ID()
	if !ok {
		return ErrNoTenantSelected
	}
	return p.Refresh(ctx, id)
}

func (p *Paged[T, F]) fetchFunc(tenantID string, s snapshot[F], meta observe.FetchMeta) func(context.Context) (cache.Entry[[]T], error) {
	req := PageRequest[F]{TenantID: tenantID, Page: s.page, PageSize: s.pageSize, Filters: s.filters}
	fk := flightKey(tenantID, s.key)
	return func(ctx context.Context) (cache.Entry[[]T], error) {
		// A flight that settled between the caller's lookup and this one
		// may already have stored the page.
		if e, ok := p.store.Get(tenantID, s.key); ok {
			return e, nil
		}
		gen := p.generation(fk)
		var page model.Page[T]
		err := p.opts.mw.Wrap(func(ctx context.Context, _ observe.FetchMeta) error {
			var err error
			page, err = p.fetch(ctx, req)
			return err
		})(ctx, meta)
		if err != nil {
			return cache.Entry[[]T]{}, err
		}
		if page.Data == nil {
			page.Data = []T{}
		}
		entry := cache.Entry[[]T]{Data: page.Data, Total: page.Total, FetchedAt: p.opts.now()}
		p.storeIfCurrent(fk, gen, tenantID, s.key, entry)
		return entry, nil
	}
}

func (p *Paged[T, F]) generation(fk string) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gens[fk]
}

// storeIfCurrent stores entry unless the key was refreshed after the fetch
// that produced it started.
func (p *Paged[T, F]) storeIfCurrent(fk string, gen uint64, tenantID, key string, entry cache.Entry[[]T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gens[fk] != gen {
		return false
	}
	return p.store.Put(tenantID, key, entry)
}

// Current returns the cached current page of the selected tenant.
func (p *Paged[T, F]) Current() View[T] {
	id, ok := p.selection.ID()
	if !ok {
		return View[T]{}
	}
	return p.CurrentFor(id)
}

// CurrentFor returns the cached current page of tenantID.
func (p *Paged[T, F]) CurrentFor(tenantID string) View[T] {
	e, ok := p.store.Get(tenantID, p.Key())
	if !ok {
		return View[T]{}
	}
	return View[T]{Data: e.Data, Total: e.Total, FetchedAt: e.FetchedAt, Found: true}
}

// Cached returns the number of pages cached for tenantID.
func (p *Paged[T, F]) Cached(tenantID string) int {
	return p.store.Len(tenantID)
}

// Page returns the current page number.
func (p *Paged[T, F]) Page() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page
}

// PageSize returns the current page size.
func (p *Paged[T, F]) PageSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pageSize
}

// Filters returns the current filters.
func (p *Paged[T, F]) Filters() F {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filters
}

// Loading reports whether a foreground load is in progress.
func (p *Paged[T, F]) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading > 0
}

// Err returns the error of the last failed load, or nil.
func (p *Paged[T, F]) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// SetPage moves to page n. Pages start at 1; smaller values select page 1.
func (p *Paged[T, F]) SetPage(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = max(n, 1)
}

// SetPageSize changes the page size and returns to page 1.
func (p *Paged[T, F]) SetPageSize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageSize = max(n, 1)
	p.page = 1
}

// SetFilters replaces the filters and returns to page 1.
func (p *Paged[T, F]) SetFilters(filters F) {
	p.UpdateFilters(func(F) F { return filters })
}

// UpdateFilters applies fn to the current filters and returns to page 1.
// It is the read-modify-write form of SetFilters for changing one field.
func (p *Paged[T, F]) UpdateFilters(fn func(F) F) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = fn(p.filters)
	p.page = 1
}

// Reset returns to page 1 with no filters and clears Err. Cached pages and
// the page size are kept.
func (p *Paged[T, F]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero F
	p.page = 1
	p.filters = zero
	p.err = nil
}

func flightKey(tenantID, key string) string {
	return tenantID + "\x00" + key
}
