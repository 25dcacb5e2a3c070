package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/tenantview/apitest"
	"github.com/jonwraymond/tenantview/auth"
	"github.com/jonwraymond/tenantview/model"
	"github.com/jonwraymond/tenantview/resilience"
)

func newTestClient(t *testing.T, opts apitest.Options, clientOpts ...Option) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(opts)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL(), clientOpts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, srv
}

func fastRetry(attempts int) Option {
	return WithExecutor(resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		})),
		resilience.WithTimeout(5*time.Second),
	))
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	for _, base := range []string{"/api", "localhost", "://bad"} {
		if _, err := New(base); err == nil {
			t.Errorf("New(%q) should fail", base)
		}
	}
}

func TestClient_Tenants(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{Tenants: 3})

	tenants, err := c.Tenants(context.Background())
	if err != nil {
		t.Fatalf("Tenants() error = %v", err)
	}
	if len(tenants) != 3 || tenants[0] != (model.Tenant{ID: "tenant-1", Name: "Company A"}) {
		t.Errorf("tenants = %+v", tenants)
	}
	if srv.Calls(apitest.EndpointTenants) != 1 {
		t.Errorf("calls = %d", srv.Calls(apitest.EndpointTenants))
	}
}

func TestClient_TenantsEmptyListIsNotNil(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{})
	srv.SetTenants(nil)

	tenants, err := c.Tenants(context.Background())
	if err != nil || tenants == nil || len(tenants) != 0 {
		t.Errorf("Tenants() = %#v, %v; want empty non-nil slice", tenants, err)
	}
}

func TestClient_TransactionsQuery(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{Transactions: 247})

	page, err := c.Transactions(context.Background(), model.TransactionQuery{
		TenantID: "tenant-1", Page: 2, PageSize: 20,
		Status: model.StatusCompleted, StartDate: "2020-01-01",
	})
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if page.Page != 2 || page.PageSize != 20 {
		t.Errorf("page = %d/%d", page.Page, page.PageSize)
	}

	q := srv.LastQuery(apitest.EndpointTransactions)
	if q.Get("page") != "2" || q.Get("pageSize") != "20" || q.Get("status") != "completed" || q.Get("startDate") != "2020-01-01" {
		t.Errorf("query = %v", q)
	}
	if q.Has("endDate") {
		t.Error("empty endDate must be omitted")
	}
}

func TestClient_UsersQuery(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{Users: 50})

	page, err := c.Users(context.Background(), model.UserQuery{TenantID: "tenant-4", Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if page.Total != 50 || len(page.Data) != 50 {
		t.Errorf("total %d len %d, want 50/50", page.Total, len(page.Data))
	}
	if srv.LastQuery(apitest.EndpointUsers).Has("role") {
		t.Error("empty role must be omitted")
	}
}

func TestClient_InvalidQueries(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{})
	ctx := context.Background()

	_, err1 := c.Transactions(ctx, model.TransactionQuery{Page: 1, PageSize: 20})
	_, err2 := c.Transactions(ctx, model.TransactionQuery{TenantID: "tenant-1", Page: 0, PageSize: 20})
	_, err3 := c.Transactions(ctx, model.TransactionQuery{TenantID: "tenant-1", Page: 1, PageSize: 20, Status: "refunded"})
	_, err4 := c.Users(ctx, model.UserQuery{TenantID: "tenant-1", Page: 1, PageSize: 0})
	_, err5 := c.Users(ctx, model.UserQuery{TenantID: "tenant-1", Page: 1, PageSize: 10, Role: "owner"})

	for i, err := range []error{err1, err2, err3, err4, err5} {
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("case %d: error = %v, want ErrInvalidQuery", i+1, err)
		}
	}
	if srv.TotalCalls() != 0 {
		t.Errorf("invalid queries reached the server %d times", srv.TotalCalls())
	}
}

func TestClient_StatusError(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{})
	srv.Fail(apitest.EndpointTransactions, http.StatusInternalServerError)

	_, err := c.Transactions(context.Background(), model.TransactionQuery{TenantID: "tenant-1", Page: 1, PageSize: 20})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.StatusCode != 500 || se.Resource != ResourceTransactions {
		t.Errorf("StatusError = %+v", se)
	}
	if err.Error() != "failed to fetch transactions: Internal Server Error" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !strings.Contains(string(se.Body), "Internal Server Error") {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestClient_RetriesTransientStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"503 recovers", http.StatusServiceUnavailable, 2, 3, false},
		{"429 recovers", http.StatusTooManyRequests, 1, 2, false},
		{"500 exhausts", http.StatusInternalServerError, 5, 3, true},
		{"404 not retried", http.StatusNotFound, 5, 1, true},
		{"400 not retried", http.StatusBadRequest, 5, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t, apitest.Options{Tenants: 2}, fastRetry(3))
			srv.FailTimes(apitest.EndpointTenants, tt.status, tt.failures, 0)

			_, err := c.Tenants(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Tenants() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := srv.Calls(apitest.EndpointTenants); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClient_RetriesNetworkErrors(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL
	dead.Close()

	attempts := 0
	c, err := New(base, WithExecutor(resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			OnRetry:      func(int, error, time.Duration) { attempts++ },
		})),
	)))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Tenants(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "failed to fetch tenants:") {
		t.Errorf("Tenants() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("retries = %d, want 1", attempts)
	}
}

func TestClient_DecodeErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, fastRetry(3))
	_, err := c.Tenants(context.Background())
	if err == nil || resilience.IsTransient(err) {
		t.Errorf("Tenants() error = %v, want permanent decode error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClient_Credentials(t *testing.T) {
	key := []byte("client-test-key")
	v := auth.NewVerifier(key, "")
	signer, err := auth.NewTokenSigner(auth.TokenConfig{Key: key})
	if err != nil {
		t.Fatal(err)
	}

	c, srv := newTestClient(t, apitest.Options{Verifier: v, Users: 10}, WithCredentials(&auth.Transport{Signer: signer}))

	if _, err := c.Tenants(context.Background()); err != nil {
		t.Errorf("Tenants() error = %v", err)
	}
	if _, err := c.Users(context.Background(), model.UserQuery{TenantID: "tenant-2", Page: 1, PageSize: 10}); err != nil {
		t.Errorf("Users() error = %v", err)
	}

	anon, _ := New(srv.URL())
	_, err = anon.Tenants(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous error = %v, want 401", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{})
	release := srv.Hold(apitest.EndpointTenants)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Tenants(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Tenants() error = %v, want deadline exceeded", err)
	}
}

func TestStatusError_Classification(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{500, true}, {502, true}, {503, true}, {429, true},
		{400, false}, {401, false}, {403, false}, {404, false},
	}
	for _, tt := range tests {
		e := &StatusError{StatusCode: tt.code}
		if got := e.Retryable(); got != tt.want {
			t.Errorf("Retryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":    0,
		"3":   3 * time.Second,
		" 1 ": time.Second,
		"-1":  0,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClient_RetryAfterHonored(t *testing.T) {
	c, srv := newTestClient(t, apitest.Options{Tenants: 1}, fastRetry(2))
	srv.FailTimes(apitest.EndpointTenants, http.StatusTooManyRequests, 1, 1)

	start := time.Now()
	if _, err := c.Tenants(context.Background()); err != nil {
		t.Fatalf("Tenants() error = %v", err)
	}
	// MaxDelay of 5ms caps the 1s hint.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, hint should be capped by MaxDelay", elapsed)
	}
}
