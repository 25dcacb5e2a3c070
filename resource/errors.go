package resource

import "errors"

var (
	// ErrNoTenantSelected is returned by loads that need a selected tenant.
	ErrNoTenantSelected = errors.New("resource: no tenant selected")

	// ErrNilFetcher is returned when a cache is built without a fetcher.
	ErrNilFetcher = errors.New("resource: fetcher is nil")
)
