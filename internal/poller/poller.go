// Package poller owns the weather refresh lifecycle: manual refresh, the
// periodic auto-refresh timer, the single-flight guarantee, and the
// loading/error state machine.
//
// Key behaviors:
//   - At most one request is in flight at a time. A refresh arriving while
//     one is in flight is dropped silently, not queued.
//   - Auto-refresh runs on a fixed period from Start until Stop and shares
//     the same single-flight guard as manual refresh.
//   - Failures surface immediately as the error phase; there is no
//     auto-retry. The previous snapshot, if any, is left in place.
//   - Responses are applied in completion order. A generation counter makes
//     results that complete after Stop a no-op instead of a write to a
//     destroyed widget.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/observability"
	"harvestwatch/internal/types"
)

// Trigger identifies what initiated a refresh, for logging and metrics.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// WeatherSource fetches the current weather payload. Implemented by the
// weather client; abstracted for clean testing.
type WeatherSource interface {
	FetchCurrent(ctx context.Context) (*types.CurrentPayload, error)
}

// AlertSink receives the alert list after each successful refresh. In
// production this is the escalation dispatcher.
type AlertSink interface {
	Dispatch(ctx context.Context, alerts []types.Alert)
}

// Config holds the dependencies for creating a Poller.
type Config struct {
	Source   WeatherSource
	Sink     AlertSink
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Poller drives the refresh lifecycle for one widget instance. Its
// PollerState is mutated only here; everyone else reads copies via State.
type Poller struct {
	source   WeatherSource
	sink     AlertSink
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu        sync.Mutex
	state     types.PollerState
	gen       uint64
	destroyed bool

	ticker   clockwork.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Poller. Start must be called to begin the auto-refresh
// cycle.
func New(cfg Config) *Poller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		source:   cfg.Source,
		sink:     cfg.Sink,
		interval: cfg.Interval,
		clock:    clock,
		logger:   logger,
		metrics:  cfg.Metrics,
		state:    types.PollerState{Phase: types.PhaseIdle},
		stopCh:   make(chan struct{}),
	}
}

// Start performs the initial refresh and begins the fixed-period
// auto-refresh timer. The timer runs until Stop; ctx is the lifetime context
// for all auto refreshes.
func (p *Poller) Start(ctx context.Context) {
	p.Refresh(ctx, TriggerAuto)

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.ticker = p.clock.NewTicker(p.interval)
	ticker := p.ticker
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.Chan():
				p.Refresh(ctx, TriggerAuto)
			}
		}
	}()
}

// Refresh executes one fetch-evaluate-dispatch cycle. It returns false when
// the request was dropped: another refresh was in flight, or the poller has
// been stopped. Dropped refreshes mutate nothing.
func (p *Poller) Refresh(ctx context.Context, trigger Trigger) bool {
	p.mu.Lock()
	if p.destroyed || p.state.InFlight {
		p.mu.Unlock()
		p.countRefresh(trigger, "dropped")
		p.logger.DebugContext(ctx, "refresh dropped", "trigger", string(trigger))
		return false
	}
	p.state.InFlight = true
	p.state.Phase = types.PhaseLoading
	gen := p.gen
	p.mu.Unlock()

	payload, err := p.source.FetchCurrent(ctx)

	p.mu.Lock()
	if p.destroyed || gen != p.gen {
		// The widget was torn down while this request was in flight. The
		// result must not be applied to a destroyed widget.
		p.mu.Unlock()
		p.logger.DebugContext(ctx, "stale refresh result ignored", "trigger", string(trigger))
		return false
	}
	p.state.InFlight = false

	if err != nil {
		p.state.Phase = types.PhaseError
		p.state.LastError = err.Error()
		p.mu.Unlock()
		p.countRefresh(trigger, "error")
		p.logger.ErrorContext(ctx, "weather refresh failed",
			"trigger", string(trigger),
			"error", err,
		)
		return true
	}

	p.state.Phase = types.PhaseReady
	p.state.LastSnapshot = &payload.Weather
	p.state.Forecast = payload.Forecast
	p.state.Alerts = payload.Alerts
	p.state.TelegramLinked = payload.TelegramLinked
	p.state.LastError = ""
	p.state.LastUpdated = p.clock.Now()
	alerts := payload.Alerts
	p.mu.Unlock()

	p.countRefresh(trigger, "success")
	p.logger.InfoContext(ctx, "weather refresh applied",
		"trigger", string(trigger),
		"weather_code", payload.Weather.WeatherCode,
		"alert_count", len(alerts),
		"telegram_linked", payload.TelegramLinked,
	)

	if p.sink != nil {
		p.sink.Dispatch(ctx, alerts)
	}
	return true
}

// State returns a copy of the current poller state. The snapshot pointer
// refers to an immutable value and is safe to share.
func (p *Poller) State() types.PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stop cancels the auto-refresh timer and marks the poller destroyed so any
// in-flight result is discarded. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		p.destroyed = true
		p.gen++
		if p.ticker != nil {
			p.ticker.Stop()
		}
		p.mu.Unlock()
		p.logger.Info("weather poller stopped")
	})
}

func (p *Poller) countRefresh(trigger Trigger, outcome string) {
	if p.metrics != nil {
		p.metrics.RefreshTotal.WithLabelValues(string(trigger), outcome).Inc()
	}
}
