package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonwraymond/tenantview/auth"
	"github.com/jonwraymond/tenantview/model"
	"github.com/jonwraymond/tenantview/resilience"
)

// Resource names used in errors and telemetry.
const (
	ResourceTenants      = "tenants"
	ResourceTransactions = "transactions"
	ResourceUsers        = "users"
)

const maxErrorBody = 4 << 10

// Client fetches tenants, transactions and users.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: every call honors ctx cancellation.
type Client struct {
	base      *url.URL
	http      *http.Client
	exec      *resilience.Executor
	creds     *auth.Transport
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithExecutor runs every request through exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(c *Client) {
		c.exec = exec
	}
}

// WithCredentials attaches credentials to every request. The transport's
// Base is set to the HTTP client's transport.
func WithCredentials(t *auth.Transport) Option {
	return func(c *Client) {
		c.creds = t
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{},
		userAgent: "tenantview",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.creds != nil && c.creds.Enabled() {
		hc := *c.http
		c.creds.Base = hc.Transport
		hc.Transport = c.creds
		c.http = &hc
	}
	return c, nil
}

// Tenants lists every tenant visible to the caller.
func (c *Client) Tenants(ctx context.Context) ([]model.Tenant, error) {
	var out []model.Tenant
	if err := c.get(ctx, ResourceTenants, "/api/tenants", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Tenant{}
	}
	return out, nil
}

// Transactions fetches one page of a tenant's transactions.
func (c *Client) Transactions(ctx context.Context, q model.TransactionQuery) (model.Page[model.Transaction], error) {
	var page model.Page[model.Transaction]
	if err := validatePaging(q.TenantID, q.Page, q.PageSize); err != nil {
		return page, err
	}
	if !q.Status.Valid() {
		return page, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, q.Status)
	}

	v := pagingValues(q.Page, q.PageSize)
	setIf(v, "status", string(q.Status))
	setIf(v, "startDate", q.StartDate)
	setIf(v, "endDate", q.EndDate)

	ctx = auth.WithTenant(ctx, q.TenantID)
	err := c.get(ctx, ResourceTransactions, tenantPath(q.TenantID, "transactions"), v, &page)
	return page, err
}

// Users fetches one page of a tenant's users.
func (c *Client) Users(ctx context.Context, q model.UserQuery) (model.Page[model.User], error) {
	var page model.Page[model.User]
	if err := validatePaging(q.TenantID, q.Page, q.PageSize); err != nil {
		return page, err
	}
	if !q.Role.Valid() {
		return page, fmt.Errorf("%w: unknown role %q", ErrInvalidQuery, q.Role)
	}

	v := pagingValues(q.Page, q.PageSize)
	setIf(v, "role", string(q.Role))

	ctx = auth.WithTenant(ctx, q.TenantID)
	err := c.get(ctx, ResourceUsers, tenantPath(q.TenantID, "users"), v, &page)
	return page, err
}

// get performs a GET through the executor and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, resource, path string, query url.Values, out any) error {
	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return c.exec.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("apiclient: build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", resource, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return newStatusError(resource, resp, body)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resilience.Permanent(fmt.Errorf("apiclient: decode %s: %w", resource, err))
		}
		return nil
	})
}

func validatePaging(tenantID string, page, pageSize int) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidQuery)
	}
	if page < 1 || pageSize < 1 {
		return fmt.Errorf("%w: page %d, page size %d", ErrInvalidQuery, page, pageSize)
	}
	return nil
}

func pagingValues(page, pageSize int) url.Values {
	return url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func tenantPath(tenantID, resource string) string {
	return "/api/tenants/" + url.PathEscape(tenantID) + "/" + resource
}
