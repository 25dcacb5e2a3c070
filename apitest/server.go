package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jonwraymond/tenantview/auth"
	"github.com/jonwraymond/tenantview/model"
)

// Endpoint names a served endpoint.
type Endpoint string

const (
	EndpointTenants      Endpoint = "tenants"
	EndpointTransactions Endpoint = "transactions"
	EndpointUsers        Endpoint = "users"
)

// Options configures generated data and behavior. Zero fields take defaults.
type Options struct {
	Tenants      int       // default 5
	Transactions int       // per tenant, default 10000
	Users        int       // per tenant, default 1000
	Seed         uint64    // default 1
	Now          time.Time // reference time for transaction dates, default time.Now()
	Latency      time.Duration

	// Verifier, when set, requires every request to carry valid credentials
	// and tenant-scoped tokens to match the requested tenant.
	Verifier *auth.Verifier
}

type failure struct {
	status     int
	retryAfter int
	remaining  int // <0 means until cleared
}

// Server is the fake API. It is an http.Handler; NewServer also starts it
// on a local listener.
type Server struct {
	opts Options
	mux  *http.ServeMux
	srv  *httptest.Server

	mu       sync.Mutex
	tenants  []model.Tenant
	txns     map[string][]model.Transaction
	users    map[string][]model.User
	calls    map[Endpoint]int
	queries  map[Endpoint]url.Values
	failures map[Endpoint]failure
	holds    map[Endpoint]*hold
}

type hold struct {
	ch   chan struct{}
	once sync.Once
}

func (h *hold) release() {
	h.once.Do(func() { close(h.ch) })
}

// NewHandler builds a Server without starting a listener.
func NewHandler(opts Options) *Server {
	if opts.Tenants <= 0 {
		opts.Tenants = 5
	}
	if opts.Transactions <= 0 {
		opts.Transactions = 10000
	}
	if opts.Users <= 0 {
		opts.Users = 1000
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	s := &Server{
		opts:     opts,
		tenants:  GenerateTenants(opts.Tenants),
		txns:     make(map[string][]model.Transaction),
		users:    make(map[string][]model.User),
		calls:    make(map[Endpoint]int),
		queries:  make(map[Endpoint]url.Values),
		failures: make(map[Endpoint]failure),
		holds:    make(map[Endpoint]*hold),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /api/tenants", s.handleTenants)
	s.mux.HandleFunc("GET /api/tenants/{id}/transactions", s.handleTransactions)
	s.mux.HandleFunc("GET /api/tenants/{id}/users", s.handleUsers)
	return s
}

// NewServer builds a Server and starts it on a local listener.
func NewServer(opts Options) *Server {
	s := NewHandler(opts)
	s.srv = httptest.NewServer(s)
	return s
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.URL
}

// Close shuts down a started server and releases any held requests.
func (s *Server) Close() {
	s.mu.Lock()
	for ep, h := range s.holds {
		h.release()
		delete(s.holds, ep)
	}
	s.mu.Unlock()

	if s.srv != nil {
		s.srv.Close()
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Calls returns how many requests reached ep, including failed ones.
func (s *Server) Calls(ep Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[ep]
}

// TotalCalls returns the number of requests across all endpoints.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// LastQuery returns the query of the most recent request to ep.
func (s *Server) LastQuery(ep Endpoint) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[ep]
}

// Fail makes ep answer with status until Recover is called.
func (s *Server) Fail(ep Endpoint, status int) {
	s.setFailure(ep, failure{status: status, remaining: -1})
}

// FailTimes makes the next n requests to ep answer with status.
// retryAfter, when positive, is sent as a Retry-After header in seconds.
func (s *Server) FailTimes(ep Endpoint, status, n, retryAfter int) {
	s.setFailure(ep, failure{status: status, remaining: n, retryAfter: retryAfter})
}

// Recover clears any failure set for ep.
func (s *Server) Recover(ep Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, ep)
}

func (s *Server) setFailure(ep Endpoint, f failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ep] = f
}

// Hold makes requests to ep block after being counted until the returned
// release func is called. Release is idempotent.
func (s *Server) Hold(ep Endpoint) (release func()) {
	h := &hold{ch: make(chan struct{})}
	s.mu.Lock()
	s.holds[ep] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.holds[ep] == h {
			delete(s.holds, ep)
		}
		s.mu.Unlock()
		h.release()
	}
}

// SetTenants replaces the tenant list.
func (s *Server) SetTenants(tenants []model.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = append([]model.Tenant(nil), tenants...)
}

// begin records the call and applies latency, holds, auth and failures.
// It reports whether the handler should continue.
func (s *Server) begin(w http.ResponseWriter, r *http.Request, ep Endpoint, tenantID string) bool {
	s.mu.Lock()
	s.calls[ep]++
	s.queries[ep] = r.URL.Query()
	held := s.holds[ep]
	f, failing := s.failures[ep]
	if failing && f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(s.failures, ep)
		} else {
			s.failures[ep] = f
		}
	}
	s.mu.Unlock()

	if held != nil {
		select {
		case <-held.ch:
		case <-r.Context().Done():
			return false
		}
	}
	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return false
		}
	}

	if v := s.opts.Verifier; v != nil {
		id, err := v.Verify(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return false
		}
		if tenantID != "" && !id.CanAccess(tenantID) {
			http.Error(w, auth.ErrForbidden.Error(), http.StatusForbidden)
			return false
		}
	}

	if failing {
		if f.retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(f.retryAfter))
		}
		http.Error(w, http.StatusText(f.status), f.status)
		return false
	}
	return true
}

func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, EndpointTenants, "") {
		return
	}

	s.mu.Lock()
	tenants := append([]model.Tenant{}, s.tenants...)
	s.mu.Unlock()

	w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=600")
	writeJSON(w, tenants)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if !s.begin(w, r, EndpointTransactions, tenantID) {
		return
	}

	q := r.URL.Query()
	page, pageSize, err := paging(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := parseBound(q.Get("startDate"))
	if err != nil {
		http.Error(w, "invalid startDate", http.StatusBadRequest)
		return
	}
	end, err := parseBound(q.Get("endDate"))
	if err != nil {
		http.Error(w, "invalid endDate", http.StatusBadRequest)
		return
	}

	status := model.TransactionStatus(q.Get("status"))
	matched := filterTransactions(s.transactionsFor(tenantID), status, start, end)
	writeJSON(w, slicePage(matched, page, pageSize))
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if !s.begin(w, r, EndpointUsers, tenantID) {
		return
	}

	q := r.URL.Query()
	page, pageSize, err := paging(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	role := model.Role(q.Get("role"))
	all := s.usersFor(tenantID)
	matched := all
	if role != "" {
		matched = make([]model.User, 0, len(all))
		for _, u := range all {
			if u.Role == role {
				matched = append(matched, u)
			}
		}
	}
	writeJSON(w, slicePage(matched, page, pageSize))
}

func (s *Server) transactionsFor(tenantID string) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txns, ok := s.txns[tenantID]; ok {
		return txns
	}
	txns := GenerateTransactions(s.opts.Seed, tenantID, s.opts.Transactions, s.opts.Now)
	s.txns[tenantID] = txns
	return txns
}

func (s *Server) usersFor(tenantID string) []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users, ok := s.users[tenantID]; ok {
		return users
	}
	users := GenerateUsers(s.opts.Seed, tenantID, s.opts.Users)
	s.users[tenantID] = users
	return users
}

func filterTransactions(all []model.Transaction, status model.TransactionStatus, start, end time.Time) []model.Transaction {
	if status == "" && start.IsZero() && end.IsZero() {
		return all
	}
	out := make([]model.Transaction, 0, len(all))
	for _, t := range all {
		if status != "" && t.Status != status {
			continue
		}
		at, err := time.Parse(DateLayout, t.Date)
		if err != nil {
			continue
		}
		if !start.IsZero() && at.Before(start) {
			continue
		}
		if !end.IsZero() && at.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// parseBound parses an inclusive date bound: a full timestamp or a bare
// date, which means midnight UTC.
func parseBound(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

var errBadPaging = errors.New("page and pageSize must be positive integers")

// paging reads page and pageSize, defaulting to 1 and 20.
func paging(q url.Values) (page, pageSize int, err error) {
	page, pageSize = 1, 20
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, errBadPaging
		}
	}
	if v := q.Get("pageSize"); v != "" {
		if pageSize, err = strconv.Atoi(v); err != nil || pageSize < 1 {
			return 0, 0, errBadPaging
		}
	}
	return page, pageSize, nil
}

func slicePage[T any](all []T, page, pageSize int) model.Page[T] {
	start := min((page-1)*pageSize, len(all))
	end := min(start+pageSize, len(all))
	return model.Page[T]{
		Total:    len(all),
		Page:     page,
		PageSize: pageSize,
		Data:     append([]T{}, all[start:end]...),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
