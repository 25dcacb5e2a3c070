package auth

import (
	"net/http"
)

const (
	// HeaderAuthorization carries bearer tokens.
	HeaderAuthorization = "Authorization"
	// HeaderAPIKey carries static API keys.
	HeaderAPIKey = "X-API-Key"
)

// Transport is an http.RoundTripper that adds credentials to every request.
//
// When Signer is set a bearer token scoped to the request's tenant (see
// WithTenant) is attached. Otherwise a non-empty Token is sent as a static
// bearer token, and a non-empty APIKey as X-API-Key.
type Transport struct {
	Base   http.RoundTripper
	Signer *TokenSigner
	Token  string
	APIKey string
}

// RoundTrip implements http.RoundTripper. The caller's request is not modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	r := req.Clone(req.Context())
	switch {
	case t.Signer != nil:
		tok, err := t.Signer.Token(TenantFromContext(req.Context()))
		if err != nil {
			return nil, err
		}
		r.Header.Set(HeaderAuthorization, "Bearer "+tok)
	case t.Token != "":
		r.Header.Set(HeaderAuthorization, "Bearer "+t.Token)
	}
	if t.APIKey != "" {
		r.Header.Set(HeaderAPIKey, t.APIKey)
	}

	return base.RoundTrip(r)
}

// Enabled reports whether the transport adds any credential.
func (t *Transport) Enabled() bool {
	return t.Signer != nil || t.Token != "" || t.APIKey != ""
}
