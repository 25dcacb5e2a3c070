package resource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/tenantview/model"
)

var errBoom = errors.New("failed to fetch: Internal Server Error")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAPI serves tenants and pages from memory. With gate set, every call
// blocks until one value is sent on gate.
type fakeAPI struct {
	mu      sync.Mutex
	tenants []model.Tenant
	err     error
	gate    chan struct{}
	started chan string
	calls   map[string]int
	queries []model.TransactionQuery
}

func newFakeAPI(tenantIDs ...string) *fakeAPI {
	f := &fakeAPI{calls: make(map[string]int), started: make(chan string, 64)}
	for _, id := range tenantIDs {
		f.tenants = append(f.tenants, model.Tenant{ID: id, Name: "Company " + id})
	}
	return f
}

func (f *fakeAPI) setGate() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeAPI) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAPI) setTenants(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants = nil
	for _, id := range ids {
		f.tenants = append(f.tenants, model.Tenant{ID: id, Name: "Company " + id})
	}
}

func (f *fakeAPI) Calls(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *fakeAPI) begin(ctx context.Context, resource string) error {
	f.mu.Lock()
	f.calls[resource]++
	gate, err := f.gate, f.err
	f.mu.Unlock()

	f.started <- resource
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) Tenants(ctx context.Context) ([]model.Tenant, error) {
	if err := f.begin(ctx, ResourceTenants); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tenants), nil
}

func (f *fakeAPI) Transactions(ctx context.Context, q model.TransactionQuery) (model.Page[model.Transaction], error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := f.begin(ctx, ResourceTransactions); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	data := make([]model.Transaction, 0, q.PageSize)
	for i := range q.PageSize {
		n := (q.Page-1)*q.PageSize + i
		data = append(data, model.Transaction{
			ID:       fmt.Sprintf("%s-txn-%d", q.TenantID, n),
			TenantID: q.TenantID,
			Status:   q.Status,
		})
	}
	return model.Page[model.Transaction]{Total: 247, Page: q.Page, PageSize: q.PageSize, Data: data}, nil
}

func (f *fakeAPI) Users(ctx context.Context, q model.UserQuery) (model.Page[model.User], error) {
	if err := f.begin(ctx, ResourceUsers); err != nil {
		return model.Page[model.User]{}, err
	}
	data := []model.User{{ID: q.TenantID + "-user-1", TenantID: q.TenantID, Role: q.Role}}
	return model.Page[model.User]{Total: 1, Page: q.Page, PageSize: q.PageSize, Data: data}, nil
}

func (f *fakeAPI) lastQuery() model.TransactionQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

// waitStarted blocks until a fetch of resource has reached the fake.
func (f *fakeAPI) waitStarted(t *testing.T, resource string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.started:
			if got == resource {
				return
			}
		case <-timeout:
			t.Fatalf("no %s fetch started", resource)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func tenantIDs(tenants []model.Tenant) []string {
	ids := make([]string, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
	}
	return ids
}
