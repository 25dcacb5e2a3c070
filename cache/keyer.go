package cache

import (
	"strconv"
	"strings"
)

// DefaultAbsentToken is used for a Field whose Absent token is unset.
const DefaultAbsentToken = "all"

// Field is one filter dimension contributing to a cache key.
//
// An empty (or whitespace-only) Value means "no filter" and encodes as Absent,
// so unset, zero and omitted filter values all map to the same key.
type Field struct {
	Name   string
	Value  string
	Absent string
}

// FilterSet is a resource-specific set of optional filters.
//
// Contract:
// - Determinism: KeyFields must return the same fields in the same order for equal filters.
type FilterSet interface {
	KeyFields() []Field
}

// Keyer encodes a page number and filter set into a canonical cache key.
//
// Contract:
// - Determinism: same inputs must produce the same key.
// - Purity: no side effects.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(page int, filters FilterSet) string
}

// DefaultKeyer renders keys of the form
//
//	page-<n>-<name>-<value>[-<name>-<value>...]
//
// e.g. page-1-status-all-start-none-end-none.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates the canonical key for page and filters. A nil filter set
// produces a page-only key.
func (k *DefaultKeyer) Key(page int, filters FilterSet) string {
	var b strings.Builder
	b.WriteString("page-")
	b.WriteString(strconv.Itoa(page))

	if filters == nil {
		return b.String()
	}
	for _, f := range filters.KeyFields() {
		b.WriteByte('-')
		b.WriteString(f.Name)
		b.WriteByte('-')
		b.WriteString(canonicalValue(f))
	}
	return b.String()
}

func canonicalValue(f Field) string {
	v := strings.TrimSpace(f.Value)
	if v != "" {
		return v
	}
	if f.Absent != "" {
		return f.Absent
	}
	return DefaultAbsentToken
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
