package resilience

import (
	"fmt"
	"sync"
	"time"
)

// statusErr mimics an HTTP status error for classification tests.
type statusErr struct {
	code  int
	after time.Duration
}

func (e *statusErr) Error() string { return fmt.Sprintf("status %d", e.code) }

func (e *statusErr) Retryable() bool { return e.code >= 500 || e.code == 429 }

func (e *statusErr) RetryAfter() time.Duration { return e.after }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
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
