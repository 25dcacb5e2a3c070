package resource

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/observe"
)

func newTestTenantList(t *testing.T, api *fakeAPI, clock *fakeClock, opts ...Option) *TenantList {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	tl, err := NewTenantList(api, cache.Policy{}, nil, opts...)
	if err != nil {
		t.Fatalf("NewTenantList() error = %v", err)
	}
	return tl
}

func TestNewTenantList_Validation(t *testing.T) {
	if _, err := NewTenantList(nil, cache.Policy{}, nil); !errors.Is(err, ErrNilFetcher) {
		t.Errorf("nil fetcher: error = %v, want ErrNilFetcher", err)
	}
	bad := cache.Policy{FreshFor: 10 * time.Minute, StaleFor: time.Minute}
	if _, err := NewTenantList(newFakeAPI(), bad, nil); !errors.Is(err, cache.ErrInvalidPolicy) {
		t.Errorf("bad policy: error = %v, want ErrInvalidPolicy", err)
	}
}

func TestTenantList_AbsentFetchesAndSelectsFirst(t *testing.T) {
	api := newFakeAPI("tenant-1", "tenant-2")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)

	if got := tl.Status(); got != cache.Absent {
		t.Fatalf("Status() before load = %v, want absent", got)
	}
	if err := tl.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := api.Calls(ResourceTenants); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if got := tenantIDs(tl.Data()); !slices.Equal(got, []string{"tenant-1", "tenant-2"}) {
		t.Errorf("Data() = %v", got)
	}
	if !tl.FetchedAt().Equal(clock.Now()) {
		t.Errorf("FetchedAt() = %v, want %v", tl.FetchedAt(), clock.Now())
	}
	if got := tl.Status(); got != cache.Fresh {
		t.Errorf("Status() = %v, want fresh", got)
	}
	sel, ok := tl.Selected()
	if !ok || sel.ID != "tenant-1" {
		t.Errorf("Selected() = %v, %v, want tenant-1", sel, ok)
	}
	if tl.Loading() {
		t.Error("Loading() = true after load")
	}
}

func TestTenantList_FreshIsNoop(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	clock.Advance(4*time.Minute + 59*time.Second)
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := api.Calls(ResourceTenants); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestTenantList_StaleServesAndRevalidatesOnce(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	var bgErrs []error
	var mu sync.Mutex
	tl := newTestTenantList(t, api, clock, WithBackgroundErrorHandler(func(_ string, err error) {
		mu.Lock()
		bgErrs = append(bgErrs, err)
		mu.Unlock()
	}))
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	api.waitStarted(t, ResourceTenants)
	first := tl.FetchedAt()

	clock.Advance(6 * time.Minute)
	if got := tl.Status(); got != cache.Stale {
		t.Fatalf("Status() = %v, want stale", got)
	}

	gate := api.setGate()
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("stale Load() error = %v", err)
	}
	api.waitStarted(t, ResourceTenants)

	// Stale data is served while the refresh is pending.
	if len(tl.Data()) != 1 || tl.Loading() {
		t.Errorf("Data() = %v, Loading() = %v during background refresh", tl.Data(), tl.Loading())
	}
	for range 5 {
		if err := tl.Load(ctx, LoadOptions{}); err != nil {
			t.Fatalf("stale Load() error = %v", err)
		}
	}
	if got := api.Calls(ResourceTenants); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}

	gate <- struct{}{}
	waitFor(t, "background refresh", func() bool { return tl.FetchedAt().After(first) })
	if got := tl.Status(); got != cache.Fresh {
		t.Errorf("Status() after refresh = %v, want fresh", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bgErrs) != 0 {
		t.Errorf("background errors = %v", bgErrs)
	}
}

func TestTenantList_BackgroundErrorIsSwallowed(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	got := make(chan error, 1)
	tl := newTestTenantList(t, api, clock, WithBackgroundErrorHandler(func(resource string, err error) {
		if resource != ResourceTenants {
			t.Errorf("resource = %q", resource)
		}
		got <- err
	}))
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	first := tl.FetchedAt()
	clock.Advance(7 * time.Minute)
	api.setErr(errBoom)

	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v, want nil for stale data", err)
	}
	select {
	case err := <-got:
		if !errors.Is(err, errBoom) {
			t.Errorf("background error = %v, want errBoom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background error handler not called")
	}

	if tl.Err() != nil {
		t.Errorf("Err() = %v, want nil", tl.Err())
	}
	if !tl.FetchedAt().Equal(first) || len(tl.Data()) != 1 {
		t.Error("cached data changed after failed background refresh")
	}
}

func TestTenantList_ExpiredFetchesInForeground(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	clock.Advance(10 * time.Minute)
	if got := tl.Status(); got != cache.Expired {
		t.Fatalf("Status() = %v, want expired", got)
	}
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := api.Calls(ResourceTenants); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if !tl.FetchedAt().Equal(clock.Now()) {
		t.Errorf("FetchedAt() = %v, want %v", tl.FetchedAt(), clock.Now())
	}
}

func TestTenantList_EmptyStaleListIsRefetched(t *testing.T) {
	api := newFakeAPI()
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	clock.Advance(6 * time.Minute)
	if got := tl.Status(); got != cache.Expired {
		t.Fatalf("Status() = %v, want expired for empty list", got)
	}
	api.setTenants("tenant-9")
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := tenantIDs(tl.Data()); !slices.Equal(got, []string{"tenant-9"}) {
		t.Errorf("Data() = %v, want [tenant-9]", got)
	}
}

func TestTenantList_ForceRefetchesFreshData(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	if err := tl.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := api.Calls(ResourceTenants); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestTenantList_ConcurrentLoadsJoin(t *testing.T) {
	for _, force := range []bool{false, true} {
		t.Run(map[bool]string{false: "absent", true: "forced"}[force], func(t *testing.T) {
			api := newFakeAPI("tenant-1", "tenant-2")
			gate := api.setGate()
			tl := newTestTenantList(t, api, newFakeClock())
			ctx := context.Background()

			const callers = 8
			errs := make(chan error, callers)
			go func() { errs <- tl.Load(ctx, LoadOptions{Force: force}) }()
			api.waitStarted(t, ResourceTenants)

			for range callers - 1 {
				go func() { errs <- tl.Load(ctx, LoadOptions{Force: force}) }()
			}
			waitFor(t, "joiners", func() bool { return tl.flight.Waiters(tenantsFlightKey) == callers })
			close(gate)

			for range callers {
				if err := <-errs; err != nil {
					t.Errorf("Load() error = %v", err)
				}
			}
			if got := api.Calls(ResourceTenants); got != 1 {
				t.Errorf("calls = %d, want 1", got)
			}
			if tl.Loading() {
				t.Error("Loading() = true after all loads settled")
			}
		})
	}
}

func TestTenantList_ForegroundErrorKeepsData(t *testing.T) {
	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	_ = tl.Load(ctx, LoadOptions{})
	api.setErr(errBoom)

	err := tl.Refresh(ctx)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Refresh() error = %v, want errBoom", err)
	}
	if !errors.Is(tl.Err(), errBoom) {
		t.Errorf("Err() = %v, want errBoom", tl.Err())
	}
	if len(tl.Data()) != 1 {
		t.Errorf("Data() = %v, want previous list kept", tl.Data())
	}

	api.setErr(nil)
	if err := tl.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tl.Err() != nil {
		t.Errorf("Err() = %v, want cleared after success", tl.Err())
	}
}

func TestTenantList_SelectionReconcile(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		listed   []string
		wantID   string
		wantOK   bool
	}{
		{"nothing selected picks first", "", []string{"tenant-1", "tenant-2"}, "tenant-1", true},
		{"listed selection kept", "tenant-2", []string{"tenant-1", "tenant-2"}, "tenant-2", true},
		{"missing selection falls back", "tenant-7", []string{"tenant-1", "tenant-2"}, "tenant-1", true},
		{"empty list clears", "tenant-1", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(tt.listed...)
			tl := newTestTenantList(t, api, newFakeClock())
			tl.Selection().Select(tt.selected)

			if err := tl.Load(context.Background(), LoadOptions{}); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			id, ok := tl.Selection().ID()
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ID() = %q, %v, want %q, %v", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestTenantList_CanceledCallerLeavesFetchRunning(t *testing.T) {
	api := newFakeAPI("tenant-1")
	gate := api.setGate()
	tl := newTestTenantList(t, api, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tl.Load(ctx, LoadOptions{}) }()
	api.waitStarted(t, ResourceTenants)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
	if tl.Err() != nil {
		t.Errorf("Err() = %v, want nil for abandoned wait", tl.Err())
	}

	close(gate)
	waitFor(t, "fetch to settle", func() bool { return tl.Status() == cache.Fresh })
}

func TestTenantList_BackgroundRefreshKeepsClearedSelection(t *testing.T) {
	api := newFakeAPI("tenant-1", "tenant-2")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock)
	ctx := context.Background()

	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tl.Selection().Clear()

	clock.Advance(6 * time.Minute)
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("stale Load() error = %v", err)
	}
	waitFor(t, "background refresh", func() bool {
		return tl.Status() == cache.Fresh && !tl.flight.InFlight(tenantsFlightKey)
	})
	if id, ok := tl.Selection().ID(); ok {
		t.Errorf("ID() = %q after background refresh, want no selection", id)
	}

	// A selected tenant that disappears still falls back to the first one.
	tl.Selection().Select("tenant-2")
	api.setTenants("tenant-1")
	clock.Advance(6 * time.Minute)
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("stale Load() error = %v", err)
	}
	waitFor(t, "fallback selection", func() bool {
		id, ok := tl.Selection().ID()
		return ok && id == "tenant-1"
	})

	tl.Selection().Clear()
	if err := tl.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if id, ok := tl.Selection().ID(); !ok || id != "tenant-1" {
		t.Errorf("ID() = %q, %v after Refresh, want tenant-1", id, ok)
	}
}

func TestTenantList_RefreshJoiningFailedBackgroundLogsError(t *testing.T) {
	var logs lockedBuffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("warn", &logs))
	handled := make(chan error, 2)

	api := newFakeAPI("tenant-1")
	clock := newFakeClock()
	tl := newTestTenantList(t, api, clock, WithMiddleware(mw),
		WithBackgroundErrorHandler(func(_ string, err error) { handled <- err }))
	ctx := context.Background()

	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	api.waitStarted(t, ResourceTenants)

	clock.Advance(6 * time.Minute)
	gate := api.setGate()
	api.setErr(errBoom)
	if err := tl.Load(ctx, LoadOptions{}); err != nil {
		t.Fatalf("stale Load() error = %v", err)
	}
	api.waitStarted(t, ResourceTenants)

	refreshed := make(chan error, 1)
	go func() { refreshed <- tl.Refresh(ctx) }()
	waitFor(t, "refresh to join", func() bool { return tl.flight.Waiters(tenantsFlightKey) == 2 })
	close(gate)

	err := <-refreshed
	if !errors.Is(err, errBoom) {
		t.Fatalf("Refresh() error = %v, want errBoom", err)
	}
	var bg *backgroundError
	if errors.As(err, &bg) {
		t.Error("Refresh() returned the background wrapper")
	}
	if !errors.Is(tl.Err(), errBoom) {
		t.Errorf("Err() = %v, want errBoom", tl.Err())
	}
	if err := <-handled; !errors.Is(err, errBoom) {
		t.Errorf("background handler error = %v, want errBoom", err)
	}
	if api.Calls(ResourceTenants) != 2 {
		t.Errorf("calls = %d, want 2", api.Calls(ResourceTenants))
	}

	out := logs.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "background refresh failed") {
		t.Errorf("missing background warning in logs:\n%s", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"joined_background":true`) {
		t.Errorf("missing foreground error in logs:\n%s", out)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
