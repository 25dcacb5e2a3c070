package resource

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/tenantview/cache"
)

// Fetcher is the remote API a Session reads from.
type Fetcher interface {
	TenantFetcher
	TransactionFetcher
	UserFetcher
}

// SessionConfig sizes a Session. Zero values mean the package defaults.
type SessionConfig struct {
	TenantPolicy         cache.Policy
	TransactionsPageSize int
	UsersPageSize        int
}

// Session bundles the caches of one dashboard around a shared Selection.
// Sessions share nothing with each other.
type Session struct {
	Selection    *Selection
	Tenants      *TenantList
	Transactions *Transactions
	Users        *Users
}

// NewSession builds a Session over f.
func NewSession(f Fetcher, cfg SessionConfig, opts ...Option) (*Session, error) {
	if f == nil {
		return nil, ErrNilFetcher
	}
	sel := NewSelection()

	tenants, err := NewTenantList(f, cfg.TenantPolicy, sel, opts...)
	if err != nil {
		return nil, err
	}
	txs, err := NewTransactions(f, sel, cfg.TransactionsPageSize, opts...)
	if err != nil {
		return nil, err
	}
	users, err := NewUsers(f, sel, cfg.UsersPageSize, opts...)
	if err != nil {
		return nil, err
	}
	return &Session{Selection: sel, Tenants: tenants, Transactions: txs, Users: users}, nil
}

// SelectTenant selects id. Page and filters of the page caches are kept.
func (s *Session) SelectTenant(id string) {
	s.Selection.Select(id)
}

// LoadAll loads the tenant list, then the current transactions and users
// pages of the selected tenant concurrently. With no tenant selected after
// the tenant list loads it returns ErrNoTenantSelected.
func (s *Session) LoadAll(ctx context.Context) error {
	if err := s.Tenants.Load(ctx, LoadOptions{}); err != nil {
		return err
	}
	id, ok := s.Selection.ID()
	if !ok {
		return ErrNoTenantSelected
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Transactions.Load(ctx, id) })
	g.Go(func() error { return s.Users.Load(ctx, id) })
	return g.Wait()
}
