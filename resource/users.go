package resource

import (
	"context"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/model"
)

const (
	// ResourceUsers is the resource name of user pages.
	ResourceUsers = "users"

	// DefaultUsersPageSize is the initial users page size.
	DefaultUsersPageSize = 100
)

// UserFilters narrows a users listing. The zero Role does not filter.
type UserFilters struct {
	Role model.Role
}

// KeyFields implements cache.FilterSet.
func (f UserFilters) KeyFields() []cache.Field {
	return []cache.Field{{Name: "role", Value: string(f.Role), Absent: "all"}}
}

// UserFetcher lists a tenant's users.
type UserFetcher interface {
	Users(ctx context.Context, q model.UserQuery) (model.Page[model.User], error)
}

// Users caches user pages per tenant.
type Users = Paged[model.User, UserFilters]

// NewUsers creates a users cache. pageSize below 1 means
// DefaultUsersPageSize.
func NewUsers(fetcher UserFetcher, selection *Selection, pageSize int, opts ...Option) (*Users, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if pageSize < 1 {
		pageSize = DefaultUsersPageSize
	}
	fetch := func(ctx context.Context, req PageRequest[UserFilters]) (model.Page[model.User], error) {
		return fetcher.Users(ctx, model.UserQuery{
			TenantID: req.TenantID,
			Page:     req.Page,
			PageSize: req.PageSize,
			Role:     req.Filters.Role,
		})
	}
	return NewPaged(ResourceUsers, fetch, selection, pageSize, opts...)
}
