// Package config defines the configuration for the HarvestWatch widget
// engine. Configuration is loaded once at process initialization and is
// immutable thereafter; it follows 12-Factor principles by strictly
// separating code from configuration.
//
// Values are resolved from the OS environment, optionally seeded from a
// dotenv file. Any missing required value or invalid format fails startup
// immediately.
package config

import "time"

// Config is the top-level configuration struct for the widget engine. It is
// populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server     ServerConfig
	Backend    BackendConfig
	Widget     WidgetConfig
	Linking    LinkingConfig
	Escalation EscalationConfig
	Prefs      PrefsConfig
}

// ServerConfig holds the render-model HTTP surface settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8085"`
}

// BackendConfig holds the farm-management backend connection settings. The
// widget consumes the backend's /api/weather and /api/telegram endpoints.
type BackendConfig struct {
	// BaseURL of the farm-management application, no trailing slash.
	BaseURL    string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:8000" validate:"required,url"`
	Timeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	UserAgent  string        `envconfig:"BACKEND_USER_AGENT" default:"HarvestWatch-Widget/1.0"`
	CSRFCookie string        `envconfig:"BACKEND_CSRF_COOKIE" default:"csrftoken"`
}

// WidgetConfig holds refresh-lifecycle and display settings.
type WidgetConfig struct {
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30m" validate:"min=1s"`
	Language        string        `envconfig:"WIDGET_LANGUAGE" default:"en" validate:"oneof=en ml"`
	Location        string        `envconfig:"FARM_LOCATION"`
}

// LinkingConfig holds the Telegram linking handshake settings. The poll loop
// has no client-side expiry: it runs until linked or cancelled.
type LinkingConfig struct {
	PollInterval time.Duration `envconfig:"LINK_POLL_INTERVAL" default:"3s" validate:"min=100ms"`
	// BotURL is the direct bot contact link used as the fallback when code
	// issuance fails, so the user is never fully blocked.
	BotURL string `envconfig:"TELEGRAM_BOT_URL" default:"https://t.me/harvestsyncbot" validate:"required,url"`
}

// EscalationConfig holds the toast channel timing.
type EscalationConfig struct {
	ToastDuration time.Duration `envconfig:"TOAST_DURATION" default:"3s"`
	ToastExit     time.Duration `envconfig:"TOAST_EXIT" default:"300ms"`
}

// PrefsConfig holds the persistent preference store location.
type PrefsConfig struct {
	Path string `envconfig:"PREFS_DB_PATH" default:"harvestwatch.db" validate:"required"`
}
