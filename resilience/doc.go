// Package resilience provides the retry, timeout and circuit breaker
// policies applied to outgoing API requests.
//
// A single Executor composes the three patterns. The breaker is outermost,
// so an open circuit fails fast without consuming retries, and the timeout
// is innermost, so each attempt gets its own deadline:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return doRequest(ctx)
//	})
//
// # Classification
//
// Only transient failures are retried and counted by the breaker. An error is
// transient when it reports so through the Retryable interface (the API
// client's status errors do: 5xx and 429 are transient, other 4xx are not),
// or when it is a network error. Errors wrapped with Permanent are never
// retried, and context cancellation stops retrying immediately.
package resilience
