// Package types contains the shared domain model for the HarvestWatch widget
// engine: weather snapshots, forecast series, alerts, linking sessions, and
// the poller state machine, plus the application error taxonomy and context
// plumbing used across all packages.
package types

import (
	"fmt"
	"time"
)

// Phase is the lifecycle phase of the weather poller state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// Severity classifies an alert for escalation purposes. The backend emits
// low/medium/high; anything at "high" (or already "severe") maps to
// SeveritySevere, everything else to SeverityInfo.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeveritySevere Severity = "severe"
)

// ParseSeverity normalizes a backend severity string into the two-level
// escalation enum. Unknown values degrade to info rather than failing.
func ParseSeverity(s string) Severity {
	switch s {
	case "severe", "high":
		return SeveritySevere
	default:
		return SeverityInfo
	}
}

// LinkStatus is the state of a Telegram linking session.
type LinkStatus string

const (
	LinkIssued    LinkStatus = "issued"
	LinkPolling   LinkStatus = "polling"
	LinkLinked    LinkStatus = "linked"
	LinkCancelled LinkStatus = "cancelled"
)

// WeatherSnapshot is a single point-in-time weather reading. A snapshot is
// immutable once constructed; a successful fetch supersedes the previous
// snapshot rather than mutating it.
type WeatherSnapshot struct {
	Temperature   float64   `json:"temperature"`   // °C
	Humidity      float64   `json:"humidity"`      // %
	WindSpeed     float64   `json:"wind_speed"`    // km/h
	Precipitation float64   `json:"precipitation"` // mm
	WeatherCode   int       `json:"weather_code"`  // WMO interpretation code
	Timestamp     time.Time `json:"timestamp"`
}

// ForecastDays is the fixed horizon of the daily forecast.
const ForecastDays = 3

// ForecastSeries holds the parallel daily forecast sequences. Index 0 is
// today. All present series must have equal length; UVIndex is optional and
// may be empty.
type ForecastSeries struct {
	TempMax       []float64 `json:"temp_max"`
	TempMin       []float64 `json:"temp_min"`
	Precipitation []float64 `json:"precipitation"`
	WindMax       []float64 `json:"wind_max"`
	UVIndex       []float64 `json:"uv_index,omitempty"`
}

// DefaultForecast returns the documented fallback series used when the
// backend omits daily_forecast data. The values exist purely for rendering
// continuity and are never persisted.
func DefaultForecast() ForecastSeries {
	return ForecastSeries{
		TempMax:       []float64{30, 31, 29},
		TempMin:       []float64{22, 23, 21},
		Precipitation: []float64{0, 5, 10},
		WindMax:       []float64{15, 18, 14},
	}
}

// Validate enforces the index-alignment invariant: every present series must
// have the same length.
func (f ForecastSeries) Validate() error {
	n := len(f.TempMax)
	for name, s := range map[string][]float64{
		"temp_min":      f.TempMin,
		"precipitation": f.Precipitation,
		"wind_max":      f.WindMax,
	} {
		if len(s) != n {
			return fmt.Errorf("forecast series %s has length %d, want %d", name, len(s), n)
		}
	}
	if len(f.UVIndex) != 0 && len(f.UVIndex) != n {
		return fmt.Errorf("forecast series uv_index has length %d, want %d", len(f.UVIndex), n)
	}
	return nil
}

// Alert is a severe-weather condition attached to a weather payload by the
// backend. The widget never invents alerts from raw numbers; it surfaces
// whatever the server delivered, head element first.
type Alert struct {
	Severity         Severity `json:"severity"`
	Kind             string   `json:"kind"`
	Message          string   `json:"message"`
	MessageLocalized string   `json:"message_localized,omitempty"`
}

// CurrentPayload is the normalized result of a current-weather fetch:
// snapshot, forecast (with fallbacks applied), server-attached alerts, and
// the Telegram link status for the session.
type CurrentPayload struct {
	Weather        WeatherSnapshot `json:"weather"`
	Forecast       ForecastSeries  `json:"forecast"`
	Alerts         []Alert         `json:"alerts"`
	TelegramLinked bool            `json:"telegram_linked"`
}

// LinkSession tracks one Telegram linking handshake. There is at most one
// active session per widget instance; it is owned exclusively by the
// handshake. The poll loop stops when the status leaves polling, but the
// session itself is retained with its terminal status so the view layer can
// show the outcome; the next Start replaces it.
type LinkSession struct {
	Code      string     `json:"code"`
	Status    LinkStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
}

// PollerState is the observable state of the weather poller. Exactly one
// instance exists per widget; it is mutated only by the poller and read by
// the escalation dispatcher and the view layer.
type PollerState struct {
	Phase          Phase            `json:"phase"`
	LastSnapshot   *WeatherSnapshot `json:"last_snapshot,omitempty"`
	Forecast       ForecastSeries   `json:"forecast"`
	Alerts         []Alert          `json:"alerts"`
	TelegramLinked bool             `json:"telegram_linked"`
	LastError      string           `json:"last_error,omitempty"`
	InFlight       bool             `json:"in_flight"`
	LastUpdated    time.Time        `json:"last_updated"`
}
