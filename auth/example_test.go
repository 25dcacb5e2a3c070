package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/tenantview/auth"
)

func ExampleTransport() {
	key := []byte("example-shared-secret")
	signer, _ := auth.NewTokenSigner(auth.TokenConfig{Key: key})
	verifier := auth.NewVerifier(key, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := verifier.Verify(r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Println("method:", id.Method, "tenant:", id.Tenant)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &auth.Transport{Signer: signer}}
	ctx := auth.WithTenant(context.Background(), "tenant-4")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	// Output:
	// method: jwt tenant: tenant-4
}
