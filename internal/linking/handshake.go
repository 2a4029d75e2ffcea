// Package linking drives the Telegram account linking handshake: issue a
// one-time code, poll for the link to appear, and settle into linked or
// cancelled. At most one session is active per widget; starting a new one
// tears down the previous loop first.
package linking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/i18n"
	"harvestwatch/internal/observability"
	"harvestwatch/internal/poller"
	"harvestwatch/internal/types"
)

// LinkClient is the backend surface the handshake needs.
type LinkClient interface {
	GenerateLinkCode(ctx context.Context) (string, error)
	CheckUpdates(ctx context.Context) error
	FetchCurrent(ctx context.Context) (*types.CurrentPayload, error)
}

// Refresher triggers a weather refresh once linking completes.
type Refresher interface {
	Refresh(ctx context.Context, trigger poller.Trigger) bool
}

// Toaster surfaces handshake outcomes as toasts.
type Toaster interface {
	ShowSuccess(ctx context.Context, message string) string
	ShowError(ctx context.Context, message string) string
}

// Config holds the dependencies for creating a Handshake.
type Config struct {
	Client       LinkClient
	Refresher    Refresher
	Toasts       Toaster
	Translator   *i18n.Translator
	Clock        clockwork.Clock
	Logger       *slog.Logger
	Metrics      *observability.Metrics
	PollInterval time.Duration
	BotURL       string
}

// Handshake owns the linking session state machine.
type Handshake struct {
	client     LinkClient
	refresher  Refresher
	toasts     Toaster
	translator *i18n.Translator
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	interval   time.Duration
	botURL     string

	mu      sync.Mutex
	session *types.LinkSession
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Handshake.
func New(cfg Config) *Handshake {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Handshake{
		client:     cfg.Client,
		refresher:  cfg.Refresher,
		toasts:     cfg.Toasts,
		translator: cfg.Translator,
		clock:      clock,
		logger:     logger,
		metrics:    cfg.Metrics,
		interval:   interval,
		botURL:     cfg.BotURL,
	}
}

// Start begins a new linking session. Any session already in progress is
// cancelled first, so re-clicking the link action restarts the handshake
// rather than stacking loops. On code issuance failure the session returns
// to idle and the error carries the bot's deep link as a fallback so the
// user can link manually.
func (h *Handshake) Start(ctx context.Context) (types.LinkSession, error) {
	h.stopLoop()

	code, err := h.client.GenerateLinkCode(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate link code", "error", err)
		if h.toasts != nil {
			h.toasts.ShowError(ctx, h.translator.T("link_code_failed"))
		}
		h.countOutcome("code_failed")
		return types.LinkSession{}, types.NewAppError(
			types.ErrCodeUpstreamTelegram,
			"failed to generate link code",
			err,
		).WithDetails(map[string]any{"fallback_url": h.botURL})
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	h.mu.Lock()
	h.session = &types.LinkSession{
		Code:      code,
		Status:    types.LinkIssued,
		StartedAt: h.clock.Now(),
	}
	h.cancel = cancel
	h.done = done
	session := *h.session
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "link code issued, polling for link", "code", code)

	go h.poll(loopCtx, done)

	return session, nil
}

// Cancel stops the active session, if any. Safe to call repeatedly.
func (h *Handshake) Cancel() {
	h.stopLoop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil ||
		(h.session.Status != types.LinkIssued && h.session.Status != types.LinkPolling) {
		return
	}
	h.session.Status = types.LinkCancelled
	h.countOutcome("cancelled")
	h.logger.Info("linking cancelled", "code", h.session.Code)
}

// Session returns a copy of the current session. The second return is false
// when no session has been started.
func (h *Handshake) Session() (types.LinkSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return types.LinkSession{}, false
	}
	return *h.session, true
}

// poll ticks until the backend reports the account as linked or the loop is
// cancelled. Per-tick failures are logged and swallowed; the next tick
// retries. The loop itself has no deadline: it runs until linked, cancelled,
// or the widget is destroyed.
func (h *Handshake) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	h.mu.Lock()
	if h.session != nil && h.session.Status == types.LinkIssued {
		h.session.Status = types.LinkPolling
	}
	h.mu.Unlock()

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if h.metrics != nil {
				h.metrics.LinkTicks.Inc()
			}
			if h.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one poll round. Returns true when linking completed.
func (h *Handshake) tick(ctx context.Context) bool {
	if err := h.client.CheckUpdates(ctx); err != nil {
		h.logger.WarnContext(ctx, "telegram update check failed", "error", err)
		return false
	}

	payload, err := h.client.FetchCurrent(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "link status check failed", "error", err)
		return false
	}
	if !payload.TelegramLinked {
		return false
	}

	h.mu.Lock()
	if h.session == nil || h.session.Status != types.LinkPolling {
		h.mu.Unlock()
		return true
	}
	h.session.Status = types.LinkLinked
	h.mu.Unlock()

	h.countOutcome("linked")
	h.logger.InfoContext(ctx, "telegram account linked")

	if h.toasts != nil {
		h.toasts.ShowSuccess(ctx, h.translator.T("link_success"))
	}
	if h.refresher != nil {
		h.refresher.Refresh(ctx, poller.TriggerManual)
	}
	return true
}

// stopLoop cancels the running poll loop and waits for it to exit.
func (h *Handshake) stopLoop() {
	h.mu.Lock()
	cancel := h.cancel
	done := h.done
	h.cancel = nil
	h.done = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (h *Handshake) countOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.LinkOutcomes.WithLabelValues(outcome).Inc()
	}
}
