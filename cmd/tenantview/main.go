// Command tenantview loads a tenant's transactions and users through the
// caching layer and prints the current pages.
//
// With -listen it keeps the caches warm on an interval and serves health
// and Prometheus metrics until interrupted. With -demo it runs against an
// in-process fake of the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/tenantview/apiclient"
	"github.com/jonwraymond/tenantview/apitest"
	"github.com/jonwraymond/tenantview/auth"
	"github.com/jonwraymond/tenantview/config"
	"github.com/jonwraymond/tenantview/health"
	"github.com/jonwraymond/tenantview/model"
	"github.com/jonwraymond/tenantview/observe"
	"github.com/jonwraymond/tenantview/resilience"
	"github.com/jonwraymond/tenantview/resource"
)

var version = "dev"

type flags struct {
	demo      bool
	tenant    string
	page      int
	status    string
	startDate string
	endDate   string
	role      string
	usersPage int
	listen    string
	interval  time.Duration
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("tenantview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&f.demo, "demo", false, "serve generated data from an in-process API")
	fs.StringVar(&f.tenant, "tenant", "", "tenant id (default: first listed tenant)")
	fs.IntVar(&f.page, "page", 1, "transactions page")
	fs.StringVar(&f.status, "status", "", "transaction status filter (pending, completed, failed)")
	fs.StringVar(&f.startDate, "start", "", "earliest transaction date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.endDate, "end", "", "latest transaction date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.role, "role", "", "user role filter (admin, user)")
	fs.IntVar(&f.usersPage, "users-page", 1, "users page")
	fs.StringVar(&f.listen, "listen", "", "serve /healthz, /readyz, /health and /metrics on this address and refresh on -interval")
	fs.DurationVar(&f.interval, "interval", 30*time.Second, "refresh interval with -listen")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if !model.TransactionStatus(f.status).Valid() {
		return f, fmt.Errorf("invalid -status %q", f.status)
	}
	if !model.Role(f.role).Valid() {
		return f, fmt.Errorf("invalid -role %q", f.role)
	}
	if f.interval <= 0 {
		return f, errors.New("-interval must be positive")
	}
	return f, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], environ(), os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func run(ctx context.Context, args []string, env map[string]string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(ctx, env, nil)
	if err != nil {
		return err
	}

	if f.demo {
		opts := apitest.Options{}
		if cfg.SigningKey != "" {
			opts.Verifier = auth.NewVerifier([]byte(cfg.SigningKey), "")
		}
		srv := apitest.NewServer(opts)
		defer srv.Close()
		cfg.BaseURL = srv.URL()
	}

	reg := prometheus.NewRegistry()
	obsCfg := cfg.Observe()
	obsCfg.Version = version
	obsCfg.Output = stderr
	obsCfg.Registerer = reg
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	log := obs.Logger()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerFailures,
		ResetTimeout: cfg.BreakerReset,
		OnStateChange: func(from, to resilience.State) {
			log.Warn(context.Background(), "api circuit state changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()})
		},
	})
	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryInitialDelay,
			Jitter:       true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				log.Warn(context.Background(), "retrying api request",
					observe.Field{Key: "attempt", Value: attempt},
					observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
					observe.Field{Key: "error", Value: err})
			},
		})),
		resilience.WithTimeout(cfg.RequestTimeout),
	)

	creds := &auth.Transport{Token: cfg.APIToken, APIKey: cfg.APIKey}
	if cfg.SigningKey != "" {
		creds.Signer, err = auth.NewTokenSigner(auth.TokenConfig{Key: []byte(cfg.SigningKey), TTL: cfg.TokenTTL})
		if err != nil {
			return err
		}
	}

	client, err := apiclient.New(cfg.BaseURL,
		apiclient.WithExecutor(exec),
		apiclient.WithCredentials(creds),
		apiclient.WithUserAgent("tenantview/"+version),
	)
	if err != nil {
		return err
	}

	session, err := resource.NewSession(client, resource.SessionConfig{
		TenantPolicy:         cfg.TenantPolicy(),
		TransactionsPageSize: cfg.TransactionsPageSize,
		UsersPageSize:        cfg.UsersPageSize,
	}, resource.WithMiddleware(mw))
	if err != nil {
		return err
	}

	session.SelectTenant(f.tenant)
	session.Transactions.SetFilters(resource.TransactionFilters{
		Status:    model.TransactionStatus(f.status),
		StartDate: f.startDate,
		EndDate:   f.endDate,
	})
	session.Transactions.SetPage(f.page)
	session.Users.SetFilters(resource.UserFilters{Role: model.Role(f.role)})
	session.Users.SetPage(f.usersPage)

	if err := session.LoadAll(ctx); err != nil {
		return err
	}
	if err := render(stdout, session); err != nil {
		return err
	}

	if f.listen == "" {
		return nil
	}
	return serve(ctx, f, session, breaker, reg, log)
}

func serve(ctx context.Context, f flags, session *resource.Session, breaker *resilience.CircuitBreaker, reg *prometheus.Registry, log observe.Logger) error {
	srv := &http.Server{Addr: f.listen, Handler: newMux(session, breaker, reg), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info(ctx, "serving health and metrics", observe.Field{Key: "addr", Value: f.listen})

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Stale tenant lists refresh in the background; failures are kept
			// in the caches' Err and reported by /health.
			_ = session.LoadAll(ctx)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

func newMux(session *resource.Session, breaker *resilience.CircuitBreaker, reg *prometheus.Registry) *http.ServeMux {
	agg := health.NewAggregator()
	agg.Register(health.TenantListChecker(session.Tenants))
	agg.Register(health.PageChecker(resource.ResourceTransactions, session.Transactions))
	agg.Register(health.PageChecker(resource.ResourceUsers, session.Users))
	agg.Register(health.BreakerChecker("api", breaker))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
