package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 200*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 200ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", cfg.Multiplier)
	}
	if cfg.RetryIf == nil {
		t.Error("RetryIf should default to IsTransient")
	}
}

func TestRetry_Attempts(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantErr      bool
	}{
		{"success first", []error{nil}, 1, false},
		{"5xx then success", []error{&statusErr{code: 502}, nil}, 2, false},
		{"429 twice then success", []error{&statusErr{code: 429}, &statusErr{code: 429}, nil}, 3, false},
		{"4xx not retried", []error{&statusErr{code: 404}, nil}, 1, true},
		{"exhausted", []error{&statusErr{code: 500}, &statusErr{code: 500}, &statusErr{code: 500}, nil}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

			attempts := 0
			err := r.Execute(context.Background(), func(context.Context) error {
				err := tt.errs[attempts]
				attempts++
				return err
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_ReturnsLastErrorUnchanged(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})
	last := &statusErr{code: 503}

	err := r.Execute(context.Background(), func(context.Context) error { return last })

	var se *statusErr
	if !errors.As(err, &se) || se != last {
		t.Errorf("Execute() error = %v, want the last status error", err)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Execute(ctx, func(context.Context) error {
			attempts++
			return &statusErr{code: 500}
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var calls []int
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			calls = append(calls, attempt)
		},
	})

	_ = r.Execute(context.Background(), func(context.Context) error { return &statusErr{code: 500} })

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", calls)
	}
}

func TestRetry_Delay(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		err      error
		want     time.Duration
	}{
		{"exponential 1", BackoffExponential, 1, nil, 100 * time.Millisecond},
		{"exponential 3", BackoffExponential, 3, nil, 400 * time.Millisecond},
		{"exponential capped", BackoffExponential, 10, nil, time.Second},
		{"linear 3", BackoffLinear, 3, nil, 300 * time.Millisecond},
		{"constant 5", BackoffConstant, 5, nil, 100 * time.Millisecond},
		{"retry-after wins", BackoffConstant, 1, &statusErr{code: 429, after: 700 * time.Millisecond}, 700 * time.Millisecond},
		{"retry-after capped", BackoffConstant, 1, &statusErr{code: 429, after: time.Minute}, time.Second},
		{"short retry-after ignored", BackoffExponential, 3, &statusErr{code: 503, after: time.Millisecond}, 400 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     time.Second,
				Strategy:     tt.strategy,
			})
			if got := r.delay(tt.attempt, tt.err); got != tt.want {
				t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_JitterBounds(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Strategy:     BackoffConstant,
		Jitter:       true,
	})

	for range 50 {
		d := r.delay(1, nil)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms)", d)
		}
	}
}
