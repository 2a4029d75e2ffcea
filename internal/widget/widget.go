// Package widget is the composition root: it wires the backend client,
// poller, escalation dispatcher, and linking handshake into one widget
// instance and projects their combined state into a render model.
package widget

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/config"
	"harvestwatch/internal/escalation"
	"harvestwatch/internal/i18n"
	"harvestwatch/internal/linking"
	"harvestwatch/internal/observability"
	"harvestwatch/internal/poller"
	"harvestwatch/internal/types"
)

// BackendClient is the backend surface the widget consumes.
type BackendClient interface {
	FetchCurrent(ctx context.Context) (*types.CurrentPayload, error)
	SendTestAlert(ctx context.Context) (*types.CurrentPayload, error)
	GenerateLinkCode(ctx context.Context) (string, error)
	CheckUpdates(ctx context.Context) error
}

// LanguageStore persists the display language across restarts.
type LanguageStore interface {
	Language(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, lang string) error
}

// Config holds the dependencies for creating a Widget.
type Config struct {
	App      *config.Config
	Client   BackendClient
	Prefs    LanguageStore
	Notifier escalation.Notifier
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Widget is one widget instance. Exactly one exists per process; Init and
// Destroy bracket its lifecycle and Destroy is terminal.
type Widget struct {
	id         uuid.UUID
	cfg        *config.Config
	client     BackendClient
	prefsStore LanguageStore
	translator *i18n.Translator
	dispatcher *escalation.Dispatcher
	poller     *poller.Poller
	handshake  *linking.Handshake
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	destroyed bool
}

// New wires a Widget from its dependencies. Call Init to start it.
func New(cfg Config) *Widget {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	translator := i18n.New(cfg.App.Widget.Language)

	dispatcher := escalation.New(escalation.Config{
		Translator:    translator,
		Notifier:      cfg.Notifier,
		Clock:         clock,
		Logger:        logger,
		Metrics:       cfg.Metrics,
		ToastDuration: cfg.App.Escalation.ToastDuration,
		ToastExit:     cfg.App.Escalation.ToastExit,
	})

	p := poller.New(poller.Config{
		Source:   cfg.Client,
		Sink:     dispatcher,
		Interval: cfg.App.Widget.RefreshInterval,
		Clock:    clock,
		Logger:   logger,
		Metrics:  cfg.Metrics,
	})

	handshake := linking.New(linking.Config{
		Client:       cfg.Client,
		Refresher:    p,
		Toasts:       dispatcher,
		Translator:   translator,
		Clock:        clock,
		Logger:       logger,
		Metrics:      cfg.Metrics,
		PollInterval: cfg.App.Linking.PollInterval,
		BotURL:       cfg.App.Linking.BotURL,
	})

	return &Widget{
		id:         uuid.New(),
		cfg:        cfg.App,
		client:     cfg.Client,
		prefsStore: cfg.Prefs,
		translator: translator,
		dispatcher: dispatcher,
		poller:     p,
		handshake:  handshake,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// ID returns the instance identifier.
func (w *Widget) ID() string {
	return w.id.String()
}

// Init restores the persisted language and starts the refresh lifecycle:
// one immediate fetch, then the periodic schedule.
func (w *Widget) Init(ctx context.Context) error {
	if w.prefsStore != nil {
		lang, err := w.prefsStore.Language(ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "failed to restore language preference", "error", err)
		} else if lang != "" {
			w.translator.SetLanguage(lang)
		}
	}

	w.logger.InfoContext(ctx, "widget initializing",
		"widget_id", w.ID(),
		"language", w.translator.Language(),
		"refresh_interval", w.cfg.Widget.RefreshInterval.String(),
	)

	w.poller.Start(ctx)
	if w.metrics != nil {
		w.metrics.WidgetUp.Set(1)
	}
	return nil
}

// Destroy tears the widget down: the refresh schedule stops, any linking
// loop is cancelled, and every later operation is rejected. Idempotent.
func (w *Widget) Destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.mu.Unlock()

	w.poller.Stop()
	w.handshake.Cancel()
	if w.metrics != nil {
		w.metrics.WidgetUp.Set(0)
	}
	w.logger.Info("widget destroyed", "widget_id", w.ID())
}

func (w *Widget) isDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *Widget) errDestroyed() error {
	return types.NewAppError(types.ErrCodeWidgetDestroyed, "widget has been destroyed", nil)
}

// Refresh requests an immediate fetch. The second result is false when the
// request was dropped because a fetch is already in flight.
func (w *Widget) Refresh(ctx context.Context) (bool, error) {
	if w.isDestroyed() {
		return false, w.errDestroyed()
	}
	return w.poller.Refresh(ctx, poller.TriggerManual), nil
}

// TestAlert asks the backend to synthesize a severe alert and escalates the
// result exactly like a real one.
func (w *Widget) TestAlert(ctx context.Context) error {
	if w.isDestroyed() {
		return w.errDestroyed()
	}

	payload, err := w.client.SendTestAlert(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to send test alert", "error", err)
		w.dispatcher.ShowError(ctx, w.translator.T("error"))
		return err
	}

	w.dispatcher.ShowSuccess(ctx, w.translator.T("test_alert_sent"))
	w.dispatcher.Dispatch(ctx, payload.Alerts)
	return nil
}

// StartLinking begins the Telegram linking handshake. Linking again while
// already linked is a conflict; restarting an in-progress handshake is not.
func (w *Widget) StartLinking(ctx context.Context) (types.LinkSession, error) {
	if w.isDestroyed() {
		return types.LinkSession{}, w.errDestroyed()
	}
	if w.poller.State().TelegramLinked {
		return types.LinkSession{}, types.NewAppError(
			types.ErrCodeConflictLinkActive, "telegram account is already linked", nil)
	}
	return w.handshake.Start(ctx)
}

// CancelLinking stops the active handshake, if any.
func (w *Widget) CancelLinking() {
	w.handshake.Cancel()
}

// SetLanguage switches the display language and persists the choice.
func (w *Widget) SetLanguage(ctx context.Context, lang string) error {
	if w.isDestroyed() {
		return w.errDestroyed()
	}
	if lang != "en" && lang != "ml" {
		return types.NewAppError(
			types.ErrCodeValidationInvalidValue, "unsupported language", nil,
		).WithDetails(map[string]any{"language": lang})
	}

	if w.prefsStore != nil {
		if err := w.prefsStore.SetLanguage(ctx, lang); err != nil {
			return err
		}
	}
	w.translator.SetLanguage(lang)
	w.logger.InfoContext(ctx, "language changed", "language", lang)
	return nil
}

// DismissBanner removes the alert banner on user action.
func (w *Widget) DismissBanner() {
	w.dispatcher.DismissBanner()
}

// Render projects the current widget state into a render model.
func (w *Widget) Render() *RenderModel {
	st := w.poller.State()
	lang := w.translator.Language()

	model := &RenderModel{
		Phase:          st.Phase,
		Title:          w.translator.T("weather_title"),
		Language:       lang,
		Location:       w.cfg.Widget.Location,
		Banner:         w.dispatcher.Banner(),
		Toasts:         w.dispatcher.Toasts(),
		TelegramLinked: st.TelegramLinked,
		InFlight:       st.InFlight,
		LastError:      st.LastError,
		LastUpdated:    st.LastUpdated,
	}

	if st.TelegramLinked {
		model.TelegramStatus = w.translator.T("linked")
	} else {
		model.TelegramStatus = w.translator.T("not_linked")
	}

	if st.LastSnapshot != nil {
		model.Current = currentView(*st.LastSnapshot, lang)
		model.Forecast = forecastCards(st.Forecast, lang)
		model.Stats = quickStats(st.Forecast)
	}

	if session, ok := w.handshake.Session(); ok {
		model.Link = &session
	}

	return model
}
