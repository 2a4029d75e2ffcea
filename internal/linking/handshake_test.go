package linking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestwatch/internal/i18n"
	"harvestwatch/internal/observability"
	"harvestwatch/internal/poller"
	"harvestwatch/internal/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockLinkClient struct {
	mu          sync.Mutex
	code        string
	codeErr     error
	checkErr    error
	fetchErr    error
	linkedAfter int // fetch count at which TelegramLinked flips true
	codes       int
	checks      int
	fetches     int
}

func (m *mockLinkClient) GenerateLinkCode(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes++
	if m.codeErr != nil {
		return "", m.codeErr
	}
	return m.code, nil
}

func (m *mockLinkClient) CheckUpdates(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	return m.checkErr
}

func (m *mockLinkClient) FetchCurrent(context.Context) (*types.CurrentPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return &types.CurrentPayload{
		TelegramLinked: m.linkedAfter > 0 && m.fetches >= m.linkedAfter,
	}, nil
}

func (m *mockLinkClient) setCheckErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkErr = err
}

func (m *mockLinkClient) counts() (codes, checks, fetches int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes, m.checks, m.fetches
}

type mockToaster struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (m *mockToaster) ShowSuccess(_ context.Context, message string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, message)
	return "toast-success"
}

func (m *mockToaster) ShowError(_ context.Context, message string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, message)
	return "toast-error"
}

type mockRefresher struct {
	mu    sync.Mutex
	calls []poller.Trigger
}

func (m *mockRefresher) Refresh(_ context.Context, trigger poller.Trigger) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, trigger)
	return true
}

func (m *mockRefresher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestHandshake(t *testing.T, clock clockwork.Clock, client *mockLinkClient) (*Handshake, *mockToaster, *mockRefresher) {
	t.Helper()
	toasts := &mockToaster{}
	refresher := &mockRefresher{}
	h := New(Config{
		Client:       client,
		Refresher:    refresher,
		Toasts:       toasts,
		Translator:   i18n.New("en"),
		Clock:        clock,
		Logger:       quietLogger(),
		Metrics:      observability.NewMetricsForTesting(),
		PollInterval: 3 * time.Second,
		BotURL:       "https://t.me/harvestsyncbot",
	})
	t.Cleanup(h.Cancel)
	return h, toasts, refresher
}

func TestStart_IssuesCodeAndPolls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{code: "482913"}
	h, _, _ := newTestHandshake(t, clock, client)

	session, err := h.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "482913", session.Code)
	assert.Equal(t, types.LinkIssued, session.Status)

	require.Eventually(t, func() bool {
		s, ok := h.Session()
		return ok && s.Status == types.LinkPolling
	}, time.Second, time.Millisecond)
}

func TestPoll_LinkedOnThirdTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{code: "482913", linkedAfter: 3}
	h, toasts, refresher := newTestHandshake(t, clock, client)

	_, err := h.Start(context.Background())
	require.NoError(t, err)
	clock.BlockUntil(1)

	for i := 0; i < 2; i++ {
		clock.Advance(3 * time.Second)
		require.Eventually(t, func() bool {
			_, _, fetches := client.counts()
			return fetches == i+1
		}, time.Second, time.Millisecond)
	}
	s, ok := h.Session()
	require.True(t, ok)
	assert.Equal(t, types.LinkPolling, s.Status)

	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		s, ok := h.Session()
		return ok && s.Status == types.LinkLinked
	}, time.Second, time.Millisecond)

	toasts.mu.Lock()
	successes := len(toasts.successes)
	toasts.mu.Unlock()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, refresher.count())
}

func TestPoll_TickErrorsSwallowed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{code: "482913", linkedAfter: 1}
	client.setCheckErr(errors.New("telegram api down"))
	h, _, _ := newTestHandshake(t, clock, client)

	_, err := h.Start(context.Background())
	require.NoError(t, err)
	clock.BlockUntil(1)

	// Two failing ticks keep the session polling and never reach the fetch.
	for i := 0; i < 2; i++ {
		clock.Advance(3 * time.Second)
		require.Eventually(t, func() bool {
			_, checks, _ := client.counts()
			return checks == i+1
		}, time.Second, time.Millisecond)
	}
	_, _, fetches := client.counts()
	assert.Zero(t, fetches)
	s, ok := h.Session()
	require.True(t, ok)
	assert.Equal(t, types.LinkPolling, s.Status)

	// Once the backend recovers the next tick completes the handshake.
	client.setCheckErr(nil)
	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		s, ok := h.Session()
		return ok && s.Status == types.LinkLinked
	}, time.Second, time.Millisecond)
}

func TestCancel_StopsPolling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{code: "482913"}
	h, _, _ := newTestHandshake(t, clock, client)

	_, err := h.Start(context.Background())
	require.NoError(t, err)
	clock.BlockUntil(1)

	h.Cancel()

	s, ok := h.Session()
	require.True(t, ok)
	assert.Equal(t, types.LinkCancelled, s.Status)

	_, checksBefore, _ := client.counts()
	clock.Advance(10 * time.Second)
	_, checksAfter, _ := client.counts()
	assert.Equal(t, checksBefore, checksAfter)

	// Cancel is idempotent.
	h.Cancel()
	s, _ = h.Session()
	assert.Equal(t, types.LinkCancelled, s.Status)
}

func TestStart_RestartReplacesSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{code: "111111"}
	h, _, _ := newTestHandshake(t, clock, client)

	_, err := h.Start(context.Background())
	require.NoError(t, err)
	clock.BlockUntil(1)

	client.mu.Lock()
	client.code = "222222"
	client.mu.Unlock()

	session, err := h.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "222222", session.Code)

	codes, _, _ := client.counts()
	assert.Equal(t, 2, codes)

	// Only the second loop is ticking.
	clock.BlockUntil(1)
	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		_, checks, _ := client.counts()
		return checks == 1
	}, time.Second, time.Millisecond)
}

func TestStart_CodeFailureFallsBackToBotURL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockLinkClient{codeErr: errors.New("code pool exhausted")}
	h, toasts, _ := newTestHandshake(t, clock, client)

	_, err := h.Start(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamTelegram, appErr.Code)
	assert.Equal(t, "https://t.me/harvestsyncbot", appErr.Details["fallback_url"])

	toasts.mu.Lock()
	errCount := len(toasts.errors)
	toasts.mu.Unlock()
	assert.Equal(t, 1, errCount)

	_, ok := h.Session()
	assert.False(t, ok)
}
