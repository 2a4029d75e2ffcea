package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestwatch/internal/types"
)

func newRequest(t *testing.T, ctx context.Context, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDo_InjectsHeaders(t *testing.T) {
	var gotUA, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReqID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", "HarvestWatch-Widget/1.0")
	ctx := types.WithRequestID(context.Background(), "req-123")

	resp, err := c.Do(newRequest(t, ctx, srv.URL))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "HarvestWatch-Widget/1.0", gotUA)
	assert.Equal(t, "req-123", gotReqID)
}

func TestDo_ReturnsErrorStatusesToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", "ua")
	resp, err := c.Do(newRequest(t, context.Background(), srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	// Status mapping is the caller's concern; no retry, no error.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDo_TransportFailureMapsToAppError(t *testing.T) {
	c := NewBaseClient(&http.Client{}, "test", "ua")

	_, err := c.Do(newRequest(t, context.Background(), "http://127.0.0.1:1"))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}

func TestDo_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", "ua")

	// Six consecutive 5xx responses trip the breaker. The responses
	// themselves are still handed back to the caller.
	for i := 0; i < 6; i++ {
		resp, err := c.Do(newRequest(t, context.Background(), srv.URL))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}

	_, err := c.Do(newRequest(t, context.Background(), srv.URL))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}
