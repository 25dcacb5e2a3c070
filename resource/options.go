package resource

import (
	"time"

	"github.com/jonwraymond/tenantview/cache"
	"github.com/jonwraymond/tenantview/observe"
)

// Option configures a cache.
type Option func(*options)

type options struct {
	now               func() time.Time
	mw                *observe.Middleware
	keyer             cache.Keyer
	onBackgroundError func(resource string, err error)
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		mw:    observe.NopMiddleware(),
		keyer: cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides time.Now for freshness and fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMiddleware records fetches and lookups through mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) {
		if mw != nil {
			o.mw = mw
		}
	}
}

// WithKeyer overrides the cache key encoder of page caches.
func WithKeyer(k cache.Keyer) Option {
	return func(o *options) {
		if k != nil {
			o.keyer = k
		}
	}
}

// WithBackgroundErrorHandler is called with every failed background
// refresh. Such failures are otherwise only logged; the cached data and the
// visible error state are left unchanged.
func WithBackgroundErrorHandler(fn func(resource string, err error)) Option {
	return func(o *options) {
		o.onBackgroundError = fn
	}
}
