package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidQuery is returned for a query the API would reject, before any
// request is made.
var ErrInvalidQuery = errors.New("apiclient: invalid query")

// StatusError is a non-2xx API response.
type StatusError struct {
	Resource   string
	StatusCode int
	Status     string // status text, e.g. "Service Unavailable"
	Body       []byte

	retryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.Resource, e.Status)
}

// Retryable reports whether the request may succeed if repeated: server
// errors and 429 Too Many Requests.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RetryAfter returns the delay suggested by the response's Retry-After header.
func (e *StatusError) RetryAfter() time.Duration {
	return e.retryAfter
}

func newStatusError(resource string, resp *http.Response, body []byte) *StatusError {
	status := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	return &StatusError{
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       body,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter accepts the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
