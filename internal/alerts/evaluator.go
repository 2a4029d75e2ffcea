// Package alerts derives display classifications and escalation candidates
// from weather payloads. Everything here is a pure function of its inputs:
// the evaluator never invents alerts from raw numbers, it only classifies
// weather codes and selects from whatever alert list the backend attached.
package alerts

import (
	"fmt"

	"harvestwatch/internal/i18n"
	"harvestwatch/internal/types"
)

// Classification is the display form of a WMO weather interpretation code.
type Classification struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// iconUnknown is the icon for codes outside every known range.
const iconUnknown = "🌤️"

// Icon maps a WMO weather code to its glyph using a fixed ordered range
// table; ties resolve to the first matching ascending bound.
func Icon(code int) string {
	switch {
	case code == 0:
		return "☀️"
	case code <= 3:
		return "⛅"
	case code <= 48:
		return "🌫️"
	case code <= 57:
		return "🌧️"
	case code <= 67:
		return "🌧️"
	case code <= 77:
		return "🌨️"
	case code <= 82:
		return "🌧️"
	case code <= 86:
		return "🌨️"
	case code <= 99:
		return "⛈️"
	default:
		return iconUnknown
	}
}

// descUnknown is the terminal fallback description.
const descUnknown = "Unknown"

// descriptions holds the per-language exact-code description tables.
var descriptions = map[string]map[int]string{
	"en": {
		0:  "Clear Sky",
		1:  "Mainly Clear",
		2:  "Partly Cloudy",
		3:  "Overcast",
		45: "Foggy",
		48: "Depositing Rime Fog",
		51: "Light Drizzle",
		53: "Moderate Drizzle",
		55: "Dense Drizzle",
		61: "Slight Rain",
		63: "Moderate Rain",
		65: "Heavy Rain",
		71: "Slight Snow",
		73: "Moderate Snow",
		75: "Heavy Snow",
		80: "Rain Showers",
		81: "Moderate Showers",
		82: "Violent Showers",
		95: "Thunderstorm",
		96: "Thunderstorm with Hail",
	},
	"ml": {
		0:  "തെളിഞ്ഞ ആകാശം",
		1:  "പ്രധാനമായും വ്യക്തം",
		2:  "ഭാഗികമായി മേഘാവൃതം",
		3:  "മേഘാവൃതം",
		45: "മൂടൽമഞ്ഞ്",
		48: "തണുത്ത മൂടൽമഞ്ഞ്",
		51: "നേരിയ തുള്ളിമഴ",
		53: "മിതമായ തുള്ളിമഴ",
		55: "കടുത്ത തുള്ളിമഴ",
		61: "ചെറിയ മഴ",
		63: "മിതമായ മഴ",
		65: "കനത്ത മഴ",
		71: "ചെറിയ മഞ്ഞ്",
		73: "മിതമായ മഞ്ഞ്",
		75: "കനത്ത മഞ്ഞ്",
		80: "മഴ ചാറ്റൽ",
		81: "മിതമായ ചാറ്റൽ",
		82: "കനത്ത ചാറ്റൽ",
		95: "ഇടിമിന്നൽ",
		96: "ആലിപ്പഴത്തോടെ ഇടിമിന്നൽ",
	},
}

// Describe resolves a weather code to a human-readable description with the
// two-level fallback: exact code, then the code rounded down to the nearest
// multiple of ten (decade fallback), then "Unknown". This is the only
// defined behavior for codes not explicitly enumerated.
func Describe(code int, lang string) string {
	table, ok := descriptions[lang]
	if !ok {
		table = descriptions[i18n.DefaultLanguage]
	}
	if s, ok := table[code]; ok {
		return s
	}
	if s, ok := table[code/10*10]; ok {
		return s
	}
	return descUnknown
}

// Classify combines Icon and Describe into a single classification.
func Classify(code int, lang string) Classification {
	return Classification{
		Icon:        Icon(code),
		Description: Describe(code, lang),
	}
}

// ForecastIcon selects the forecast-card glyph from the day's precipitation
// and maximum temperature.
func ForecastIcon(precip, tempMax float64) string {
	switch {
	case precip > 10:
		return "🌧️"
	case precip > 0:
		return "🌦️"
	case tempMax > 35:
		return "🌡️"
	case tempMax > 28:
		return "☀️"
	default:
		return "⛅"
	}
}

// Head returns the highest-priority alert: the list head, server-ordered.
// Only this alert is surfaced to the single-item channels (banner, system
// notification); the full list stays available to secondary views.
func Head(alerts []types.Alert) (types.Alert, bool) {
	if len(alerts) == 0 {
		return types.Alert{}, false
	}
	return alerts[0], true
}

// LocalizedMessage picks an alert's message for the given language: the
// localized variant when a non-default language is active and the backend
// supplied one, the default message otherwise.
func LocalizedMessage(a types.Alert, lang string) string {
	if lang != i18n.DefaultLanguage && a.MessageLocalized != "" {
		return a.MessageLocalized
	}
	return a.Message
}

// DayName returns the display name for a forecast day index (0 = today).
func DayName(index int, lang string) string {
	keys := [types.ForecastDays]string{"today", "tomorrow", "day_after"}
	if index < 0 || index >= len(keys) {
		return fmt.Sprintf("Day %d", index+1)
	}
	return i18n.Lookup(lang, keys[index])
}
