package resource

import (
	"slices"
	"sync"

	"github.com/jonwraymond/tenantview/model"
)

// Selection is the currently selected tenant. The zero value has no
// selection and is ready to use.
type Selection struct {
	mu  sync.RWMutex
	id  string
	set bool
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// ID returns the selected tenant id and whether one is selected.
func (s *Selection) ID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.set
}

// Select selects id. An empty id clears the selection.
func (s *Selection) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.set = id, id != ""
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.Select("")
}

// reconcile applies the tenant list to the selection. A selected tenant
// missing from the list falls back to the first tenant, or to no selection
// when the list is empty. With nothing selected, the first tenant is chosen
// only when pickFirst is set. It returns the resulting selection.
func (s *Selection) reconcile(tenants []model.Tenant, pickFirst bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set && slices.ContainsFunc(tenants, func(t model.Tenant) bool { return t.ID == s.id }) {
		return s.id, true
	}
	if !s.set && !pickFirst {
		return "", false
	}
	if len(tenants) == 0 {
		s.id, s.set = "", false
	} else {
		s.id, s.set = tenants[0].ID, true
	}
	return s.id, s.set
}
