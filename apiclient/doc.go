// Package apiclient is the HTTP client for the tenant API's three listing
// endpoints:
//
//	GET /api/tenants
//	GET /api/tenants/{id}/transactions?page=&pageSize=[&status=][&startDate=][&endDate=]
//	GET /api/tenants/{id}/users?page=&pageSize=[&role=]
//
// Non-2xx responses become *StatusError, whose message reads
// "failed to fetch <resource>: <status text>". Requests run through a
// resilience.Executor, so 5xx, 429 and network failures are retried while
// other client errors are returned at once.
package apiclient
