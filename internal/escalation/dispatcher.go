// Package escalation surfaces evaluated alerts through the user-facing
// channels: the persistent in-page banner, transient toasts, and the
// permission-gated system notification. Channel state lives in the render
// model consumed by the view layer.
package escalation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/alerts"
	"harvestwatch/internal/i18n"
	"harvestwatch/internal/observability"
	"harvestwatch/internal/types"
)

// ToastKind distinguishes success from error toasts.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Banner is the persistent in-page alert element. The ID is the element
// identity: replacing the banner content keeps the ID so the view layer
// reuses the element instead of recreating it.
type Banner struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Alert   types.Alert `json:"alert"`
}

// Toast is a transient message. After the visible duration it enters the
// exit transition (Expiring=true) and is then removed. Toasts do not queue
// or stack-manage; concurrent toasts simply coexist.
type Toast struct {
	ID        string    `json:"id"`
	Kind      ToastKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Expiring  bool      `json:"expiring"`
}

// Config holds the dependencies for creating a Dispatcher.
type Config struct {
	Translator    *i18n.Translator
	Notifier      Notifier
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	ToastDuration time.Duration // visible duration before the exit transition
	ToastExit     time.Duration // exit transition length before removal
}

// Dispatcher renders evaluated alerts into the banner, toast, and system
// notification channels, applying the permission and de-duplication rules.
type Dispatcher struct {
	translator *i18n.Translator
	notifier   Notifier
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	toastTTL   time.Duration
	toastExit  time.Duration

	mu     sync.Mutex
	banner *Banner
	toasts map[string]*Toast
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	toastTTL := cfg.ToastDuration
	if toastTTL <= 0 {
		toastTTL = 3 * time.Second
	}
	toastExit := cfg.ToastExit
	if toastExit <= 0 {
		toastExit = 300 * time.Millisecond
	}
	return &Dispatcher{
		translator: cfg.Translator,
		notifier:   cfg.Notifier,
		clock:      clock,
		logger:     logger,
		metrics:    cfg.Metrics,
		toastTTL:   toastTTL,
		toastExit:  toastExit,
		toasts:     make(map[string]*Toast),
	}
}

// Dispatch applies an evaluated alert list to the banner and system
// notification channels. An empty list removes the banner entirely. A new
// head alert replaces the banner content in place, keeping the element
// identity, and triggers one system notification.
func (d *Dispatcher) Dispatch(ctx context.Context, alertList []types.Alert) {
	head, ok := alerts.Head(alertList)
	if !ok {
		d.mu.Lock()
		removed := d.banner != nil
		d.banner = nil
		d.mu.Unlock()
		if removed {
			d.logger.InfoContext(ctx, "alert banner removed")
		}
		return
	}

	lang := d.translator.Language()
	title := d.translator.T("severe_weather_alert")
	message := alerts.LocalizedMessage(head, lang)

	d.mu.Lock()
	if d.banner == nil {
		d.banner = &Banner{ID: uuid.NewString()}
	}
	d.banner.Title = title
	d.banner.Message = message
	d.banner.Alert = head
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.AlertsEscalated.Inc()
	}
	d.logger.InfoContext(ctx, "alert escalated to banner",
		"kind", head.Kind,
		"severity", string(head.Severity),
	)

	d.notify(ctx, title, message)
}

// DismissBanner removes the banner on explicit user action.
func (d *Dispatcher) DismissBanner() {
	d.mu.Lock()
	d.banner = nil
	d.mu.Unlock()
}

// Banner returns a copy of the current banner, or nil when none is shown.
func (d *Dispatcher) Banner() *Banner {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.banner == nil {
		return nil
	}
	b := *d.banner
	return &b
}

// ShowSuccess shows a success toast and returns its ID.
func (d *Dispatcher) ShowSuccess(ctx context.Context, message string) string {
	return d.showToast(ctx, ToastSuccess, message)
}

// ShowError shows an error toast and returns its ID.
func (d *Dispatcher) ShowError(ctx context.Context, message string) string {
	return d.showToast(ctx, ToastError, message)
}

// showToast creates a toast and schedules its lifecycle: visible for the
// configured duration, then the exit transition, then removal. Each toast's
// lifecycle is independent; there is no de-duplication across toasts.
func (d *Dispatcher) showToast(ctx context.Context, kind ToastKind, message string) string {
	toast := &Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: d.clock.Now(),
	}

	d.mu.Lock()
	d.toasts[toast.ID] = toast
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.ToastsShown.WithLabelValues(string(kind)).Inc()
	}
	d.logger.DebugContext(ctx, "toast shown", "kind", string(kind), "message", message)

	go func() {
		<-d.clock.After(d.toastTTL)
		d.mu.Lock()
		if tt, ok := d.toasts[toast.ID]; ok {
			tt.Expiring = true
		}
		d.mu.Unlock()

		<-d.clock.After(d.toastExit)
		d.mu.Lock()
		delete(d.toasts, toast.ID)
		d.mu.Unlock()
	}()

	return toast.ID
}

// Toasts returns the currently visible toasts ordered by creation time.
func (d *Dispatcher) Toasts() []Toast {
	d.mu.Lock()
	out := make([]Toast, 0, len(d.toasts))
	for _, t := range d.toasts {
		out = append(out, *t)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// notify sends the system notification for an escalated alert, applying the
// permission tri-state. When permission is undecided it is requested exactly
// once per escalation attempt; denial is a silent skip, never an error.
func (d *Dispatcher) notify(ctx context.Context, title, body string) {
	if d.notifier == nil {
		return
	}

	perm := d.notifier.Permission()
	if perm == PermissionDefault {
		perm = d.notifier.RequestPermission(ctx)
	}
	if perm != PermissionGranted {
		d.logger.DebugContext(ctx, "system notification skipped", "permission", string(perm))
		return
	}

	if err := d.notifier.Notify(ctx, title, body); err != nil {
		d.logger.WarnContext(ctx, "system notification failed", "error", err)
		return
	}
	if d.metrics != nil {
		d.metrics.NotificationsSent.Inc()
	}
}
