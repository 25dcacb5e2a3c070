package cache

import (
	"sort"
	"sync"
)

// Store is an in-memory, tenant-scoped cache: tenant ID → key → Entry.
//
// Entries live for the lifetime of the Store; there is no background
// eviction. All methods are safe for concurrent use.
type Store[T any] struct {
	mu      sync.RWMutex
	tenants map[string]map[string]Entry[T]
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		tenants: make(map[string]map[string]Entry[T]),
	}
}

// Get returns the entry for (tenant, key).
func (s *Store[T]) Get(tenant, key string) (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tenants[tenant][key]
	return entry, ok
}

// Put replaces the entry for (tenant, key). An entry fetched before the one
// already stored is discarded so FetchedAt never moves backwards; Put
// reports whether the entry was stored.
func (s *Store[T]) Put(tenant, key string, entry Entry[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, ok := s.tenants[tenant]
	if !ok {
		pages = make(map[string]Entry[T])
		s.tenants[tenant] = pages
	}
	if existing, ok := pages[key]; ok && entry.FetchedAt.Before(existing.FetchedAt) {
		return false
	}
	pages[key] = entry
	return true
}

// Delete removes the entry for (tenant, key). Idempotent; reports whether
// an entry was present.
func (s *Store[T]) Delete(tenant, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, ok := s.tenants[tenant]
	if !ok {
		return false
	}
	if _, ok := pages[key]; !ok {
		return false
	}
	delete(pages, key)
	return true
}

// Len returns the number of entries cached for tenant.
func (s *Store[T]) Len(tenant string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenant])
}

// Keys returns the cached keys for tenant in sorted order.
func (s *Store[T]) Keys(tenant string) []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.tenants[tenant]))
	for k := range s.tenants[tenant] {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Tenants returns the tenants that have a page cache, in sorted order.
func (s *Store[T]) Tenants() []string {
	s.mu.RLock()
	tenants := make([]string, 0, len(s.tenants))
	for t := range s.tenants {
		tenants = append(tenants, t)
	}
	s.mu.RUnlock()

	sort.Strings(tenants)
	return tenants
}
