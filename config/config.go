package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/observe"
	"github.com/jonwraymond/tenantview/secret"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full runtime configuration.
type Config struct {
	ServiceName string `env:"TENANTVIEW_SERVICE_NAME" envDefault:"tenantview"`
	BaseURL     string `env:"TENANTVIEW_BASE_URL" envDefault:"http://localhost:8080"`

	// Credentials. At most one of APIToken and SigningKey is used; a signing
	// key takes precedence. APIKey may be combined with either.
	APIToken   string        `env:"TENANTVIEW_API_TOKEN"`
	APIKey     string        `env:"TENANTVIEW_API_KEY"`
	SigningKey string        `env:"TENANTVIEW_SIGNING_KEY"`
	TokenTTL   time.Duration `env:"TENANTVIEW_TOKEN_TTL" envDefault:"5m"`

	TenantsFreshFor      time.Duration `env:"TENANTVIEW_TENANTS_FRESH_FOR" envDefault:"5m"`
	TenantsStaleFor      time.Duration `env:"TENANTVIEW_TENANTS_STALE_FOR" envDefault:"10m"`
	TransactionsPageSize int           `env:"TENANTVIEW_TRANSACTIONS_PAGE_SIZE" envDefault:"20"`
	UsersPageSize        int           `env:"TENANTVIEW_USERS_PAGE_SIZE" envDefault:"100"`

	RequestTimeout    time.Duration `env:"TENANTVIEW_REQUEST_TIMEOUT" envDefault:"10s"`
	RetryAttempts     int           `env:"TENANTVIEW_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInitialDelay time.Duration `env:"TENANTVIEW_RETRY_INITIAL_DELAY" envDefault:"200ms"`
	BreakerFailures   int           `env:"TENANTVIEW_BREAKER_FAILURES" envDefault:"5"`
	BreakerReset      time.Duration `env:"TENANTVIEW_BREAKER_RESET" envDefault:"30s"`

	LogLevel        string  `env:"TENANTVIEW_LOG_LEVEL" envDefault:"info"`
	TraceExporter   string  `env:"TENANTVIEW_TRACE_EXPORTER" envDefault:"none"`
	TraceSamplePct  float64 `env:"TENANTVIEW_TRACE_SAMPLE_PCT" envDefault:"1"`
	MetricsExporter string  `env:"TENANTVIEW_METRICS_EXPORTER" envDefault:"none"`
}

// Load parses the process environment, resolves secret references with
// resolver (secret.DefaultResolver when nil) and validates the result.
func Load(ctx context.Context, resolver *secret.Resolver) (Config, error) {
	return load(ctx, env.Options{}, resolver)
}

// LoadFrom is Load over an explicit environment instead of the process one.
func LoadFrom(ctx context.Context, environ map[string]string, resolver *secret.Resolver) (Config, error) {
	return load(ctx, env.Options{Environment: environ}, resolver)
}

func load(ctx context.Context, opts env.Options, resolver *secret.Resolver) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if resolver == nil {
		resolver = secret.DefaultResolver()
	}
	err := resolver.ResolveAll(ctx, map[string]*string{
		"TENANTVIEW_API_TOKEN":   &cfg.APIToken,
		"TENANTVIEW_API_KEY":     &cfg.APIKey,
		"TENANTVIEW_SIGNING_KEY": &cfg.SigningKey,
	})
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base url %q must be absolute", ErrInvalid, c.BaseURL)
	}
	if err := c.TenantPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: tenant freshness: %w", ErrInvalid, err)
	}
	if c.TransactionsPageSize < 1 || c.UsersPageSize < 1 {
		return fmt.Errorf("%w: page sizes must be at least 1", ErrInvalid)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1", ErrInvalid)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalid)
	}
	if c.SigningKey != "" && c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalid)
	}
	obs := c.Observe()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// TenantPolicy returns the freshness policy for the tenant list.
func (c Config) TenantPolicy() cache.Policy {
	return cache.Policy{FreshFor: c.TenantsFreshFor, StaleFor: c.TenantsStaleFor}
}

// Observe returns the telemetry configuration.
func (c Config) Observe() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   c.TraceExporter != "none",
			Exporter:  c.TraceExporter,
			SamplePct: c.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "none",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}
