// Package auth attaches credentials to outgoing API requests and verifies
// them on the serving side.
//
// The client side is a [Transport] that sets either a short-lived HS256
// bearer token minted by a [TokenSigner] (carrying the tenant of the request
// in a "tenant" claim) or a static X-API-Key header. The tenant of a request
// travels in its context via [WithTenant].
//
// The serving side is a [Verifier], used by the in-process fake API, which
// accepts the same credentials and rejects tokens scoped to another tenant.
package auth
