// Package apitest is an in-process fake of the tenant API.
//
// It serves deterministic generated data: tenants tenant-1..tenant-N named
// "Company A", "Company B", ...; for each tenant a fixed number of
// transactions spread over the six months before a reference time (newest
// first) and a fixed number of users, about 80% active. Filtering and page
// slicing follow the real API.
//
// A Server counts calls per endpoint, can be told to fail an endpoint with a
// given status, and can hold requests until released so tests can line up
// concurrent callers deterministically.
package apitest
