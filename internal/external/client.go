// Package external is the boundary between the widget engine and the
// farm-management backend it polls. All outbound HTTP calls are routed
// through the BaseClient, which enforces circuit breaking, trace
// propagation, and error mapping.
//
// Unlike a generic API client, the BaseClient performs NO retries: retry
// policy belongs to the callers. The weather poller surfaces failures
// immediately as its error phase, and the linking loop swallows per-tick
// failures; neither wants a hidden retry loop underneath.
package external

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"harvestwatch/internal/types"
)

// BaseClient wraps an *http.Client and a circuit breaker to enforce
// consistent resilience patterns on all outbound calls to the backend.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient with the given http client, breaker
// name, and user agent string. The breaker opens after five consecutive
// failures (transport errors or 5xx/429 responses).
func NewBaseClient(httpClient *http.Client, breakerName, userAgent string) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BaseClient{
		client:    httpClient,
		breaker:   cb,
		userAgent: userAgent,
	}
}

// Do executes the HTTP request with:
//  1. Request-ID injection (X-Request-Id from context)
//  2. User-Agent header injection
//  3. Circuit breaker wrapping (5xx and 429 count as breaker failures)
//  4. Error mapping to types.AppError
//
// Any received response is returned as-is with a nil error; status handling
// is the caller's concern. A transport failure or an open breaker yields a
// types.AppError with the upstream_unavailable code.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if requestID := types.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// 5xx and 429 count against the breaker but are still returned to
		// the caller for status mapping.
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, errBreakerStatus
		}
		return r, nil
	})

	if resp != nil {
		return resp, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"backend temporarily unavailable (circuit open)",
			err,
		)
	}

	return nil, types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"backend request failed",
		err,
	)
}

// errBreakerStatus marks a response whose status code counts as a breaker
// failure. It never escapes Do.
var errBreakerStatus = errors.New("upstream returned a failure status")
