package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Flight coalesces concurrent fetches per key.
//
// At most one fetch runs per key at a time. Callers arriving while a fetch is
// in flight join it and observe the same result. The in-flight slot is
// cleared exactly once, when the fetch settles.
//
// A started fetch always runs to completion: it executes on a context
// detached from the starter's cancellation. A waiting caller whose own
// context ends stops waiting but does not cancel the fetch.
type Flight[T any] struct {
	group singleflight.Group

	mu    sync.Mutex
	calls map[string]*call
}

// call is the claim on a key's in-flight slot. It is registered together
// with the singleflight call, under Flight.mu.
type call struct {
	waiters int
}

// Result is the outcome of a settled flight.
type Result[T any] struct {
	Value  T
	Err    error
	Shared bool
}

// Do runs fn for key unless a fetch for key is already in flight, in which
// case it waits for that fetch instead. shared reports whether the result
// was delivered to more than one caller.
func (f *Flight[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (value T, shared bool, err error) {
	f.mu.Lock()
	c := f.claim(key)
	c.waiters++
	ch := f.group.DoChan(key, f.wrap(ctx, key, c, fn))
	f.mu.Unlock()

	select {
	case res := <-ch:
		f.settle(key, c, true)
		if res.Err != nil {
			return value, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	case <-ctx.Done():
		f.mu.Lock()
		c.waiters--
		f.mu.Unlock()
		go func() {
			<-ch
			f.settle(key, c, false)
		}()
		return value, false, ctx.Err()
	}
}

// Start launches fn for key in the background unless a fetch for key is
// already in flight. It reports whether a new fetch was started; only then
// is done, if non-nil, called with the result once the fetch settles.
func (f *Flight[T]) Start(ctx context.Context, key string, fn func(context.Context) (T, error), done func(Result[T])) bool {
	f.mu.Lock()
	if _, ok := f.calls[key]; ok {
		f.mu.Unlock()
		return false
	}
	c := f.claim(key)
	c.waiters++
	ch := f.group.DoChan(key, f.wrap(ctx, key, c, fn))
	f.mu.Unlock()

	go func() {
		res := <-ch
		f.settle(key, c, true)
		if done == nil {
			return
		}
		out := Result[T]{Err: res.Err, Shared: res.Shared}
		if res.Err == nil {
			out.Value = res.Val.(T)
		}
		done(out)
	}()
	return true
}

// Forget detaches key from any in-flight fetch so the next Do starts a new
// one. The detached fetch still runs to completion.
func (f *Flight[T]) Forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.calls, key)
	f.group.Forget(key)
}

// InFlight reports whether a fetch for key has started and not settled.
func (f *Flight[T]) InFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.calls[key]
	return ok
}

// Waiters returns how many callers are waiting on the fetch in flight for
// key, including its starter.
func (f *Flight[T]) Waiters(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[key]; ok {
		return c.waiters
	}
	return 0
}

// claim returns the claim for key, registering a new one when none exists.
// Callers hold f.mu.
func (f *Flight[T]) claim(key string) *call {
	if c, ok := f.calls[key]; ok {
		return c
	}
	if f.calls == nil {
		f.calls = make(map[string]*call)
	}
	c := &call{}
	f.calls[key] = c
	return c
}

// settle releases c once its result is delivered. A claim registered in the
// instant between a fetch returning and singleflight dropping its key joins
// that fetch without running its own, so receivers release it too.
func (f *Flight[T]) settle(key string, c *call, waiting bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if waiting {
		c.waiters--
	}
	if f.calls[key] == c {
		delete(f.calls, key)
	}
}

func (f *Flight[T]) wrap(ctx context.Context, key string, c *call, fn func(context.Context) (T, error)) func() (any, error) {
	detached := context.WithoutCancel(ctx)
	return func() (any, error) {
		defer func() {
			f.mu.Lock()
			if f.calls[key] == c {
				delete(f.calls, key)
			}
			f.mu.Unlock()
		}()
		return fn(detached)
	}
}
