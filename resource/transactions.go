package resource

import (
	"context"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/model"
)

const (
	// ResourceTransactions is the resource name of transaction pages.
	ResourceTransactions = "transactions"

	// DefaultTransactionsPageSize is the initial transactions page size.
	DefaultTransactionsPageSize = 20
)

// TransactionFilters narrows a transactions listing. Zero fields do not
// filter. Dates are inclusive ISO dates.
type TransactionFilters struct {
	Status    model.TransactionStatus
	StartDate string
	EndDate   string
}

// KeyFields implements cache.FilterSet.
func (f TransactionFilters) KeyFields() []cache.Field {
	return []cache.Field{
		{Name: "status", Value: string(f.Status), Absent: "all"},
		{Name: "start", Value: f.StartDate, Absent: "none"},
		{Name: "end", Value: f.EndDate, Absent: "none"},
	}
}

// TransactionFetcher lists a tenant's transactions.
type TransactionFetcher interface {
	Transactions(ctx context.Context, q model.TransactionQuery) (model.Page[model.Transaction], error)
}

// Transactions caches transaction pages per tenant.
type Transactions = Paged[model.Transaction, TransactionFilters]

// NewTransactions creates a transactions cache. pageSize below 1 means
// DefaultTransactionsPageSize.
func NewTransactions(fetcher TransactionFetcher, selection *Selection, pageSize int, opts ...Option) (*Transactions, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if pageSize < 1 {
		pageSize = DefaultTransactionsPageSize
	}
	fetch := func(ctx context.Context, req PageRequest[TransactionFilters]) (model.Page[model.Transaction], error) {
		return fetcher.Transactions(ctx, model.TransactionQuery{
			TenantID:  req.TenantID,
			Page:      req.Page,
			PageSize:  req.PageSize,
			Status:    req.Filters.Status,
			StartDate: req.Filters.StartDate,
			EndDate:   req.Filters.EndDate,
		})
	}
	return NewPaged(ResourceTransactions, fetch, selection, pageSize, opts...)
}
