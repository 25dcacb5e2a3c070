// Package model defines the records exchanged with the tenant API.
//
// Tenants are the top-level scope. Transactions and users are listed per
// tenant through paginated, filterable endpoints that all answer with the
// same Page envelope.
package model
