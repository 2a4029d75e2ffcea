// Package observability exposes Prometheus instrumentation for the widget
// engine: refresh outcomes, escalations, toast churn, and linking activity.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the widget engine.
type Metrics struct {
	RefreshTotal      *prometheus.CounterVec // labels: trigger={manual,auto}, outcome={success,error,dropped}
	AlertsEscalated   prometheus.Counter
	NotificationsSent prometheus.Counter
	ToastsShown       *prometheus.CounterVec // labels: kind={success,error}
	LinkTicks         prometheus.Counter
	LinkOutcomes      *prometheus.CounterVec // labels: outcome={linked,cancelled,code_failed}
	WidgetUp          prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "refresh_total",
			Help:      "Weather refresh attempts by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		AlertsEscalated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "alerts_escalated_total",
			Help:      "Head alerts surfaced to the banner channel.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "notifications_sent_total",
			Help:      "System notifications emitted after the permission gate.",
		}),
		ToastsShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "toasts_shown_total",
			Help:      "Transient toasts shown by kind.",
		}, []string{"kind"}),
		LinkTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "link_poll_ticks_total",
			Help:      "Ticks executed by the Telegram linking poll loop.",
		}),
		LinkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvestwatch",
			Name:      "link_outcomes_total",
			Help:      "Terminal outcomes of linking handshakes.",
		}, []string{"outcome"}),
		WidgetUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "harvestwatch",
			Name:      "widget_up",
			Help:      "1 while the widget is initialized, 0 after teardown.",
		}),
	}
}

// NewMetrics creates and registers all widget metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshTotal,
		m.AlertsEscalated,
		m.NotificationsSent,
		m.ToastsShown,
		m.LinkTicks,
		m.LinkOutcomes,
		m.WidgetUp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
