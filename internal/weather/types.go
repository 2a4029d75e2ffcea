package weather

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/types"
)

// Wire types for the backend's /api/weather and /api/telegram responses.
// Field names follow the backend's snake_case JSON exactly; normalization
// into the domain model happens in toPayload.

type currentResponse struct {
	Weather        wireWeather `json:"weather"`
	Alerts         []wireAlert `json:"alerts"`
	TelegramLinked bool        `json:"telegram_linked"`
}

type wireWeather struct {
	Temperature   float64      `json:"temperature"`
	Humidity      float64      `json:"humidity"`
	Precipitation float64      `json:"precipitation"`
	WindSpeed     float64      `json:"wind_speed"`
	WeatherCode   int          `json:"weather_code"`
	Timestamp     string       `json:"timestamp"`
	DailyForecast wireForecast `json:"daily_forecast"`
}

type wireForecast struct {
	TempMax       []float64 `json:"temp_max"`
	TempMin       []float64 `json:"temp_min"`
	Precipitation []float64 `json:"precipitation"`
	WindMax       []float64 `json:"wind_max"`
	UVIndex       []float64 `json:"uv_index"`
}

type wireAlert struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	MessageML string `json:"message_ml"`
}

type codeResponse struct {
	Code string `json:"code"`
}

// timestampLayouts are tried in order when parsing the backend timestamp.
// Open-Meteo emits minute-resolution local times without a zone designator.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(s string, clock clockwork.Clock) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return clock.Now()
}

// toPayload normalizes a wire response into the domain payload: timestamps
// are parsed leniently, absent forecast series take the documented fallback
// defaults, and backend severities collapse into the two-level enum. A
// forecast violating the index-alignment invariant is replaced wholesale by
// the fallback series so downstream indexing stays safe.
func (r currentResponse) toPayload(clock clockwork.Clock, logger *slog.Logger) *types.CurrentPayload {
	defaults := types.DefaultForecast()
	forecast := types.ForecastSeries{
		TempMax:       orDefault(r.Weather.DailyForecast.TempMax, defaults.TempMax),
		TempMin:       orDefault(r.Weather.DailyForecast.TempMin, defaults.TempMin),
		Precipitation: orDefault(r.Weather.DailyForecast.Precipitation, defaults.Precipitation),
		WindMax:       orDefault(r.Weather.DailyForecast.WindMax, defaults.WindMax),
		UVIndex:       r.Weather.DailyForecast.UVIndex,
	}
	if err := forecast.Validate(); err != nil {
		logger.Warn("backend forecast series misaligned, using fallback forecast", "error", err)
		forecast = defaults
	}

	alerts := make([]types.Alert, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		alerts = append(alerts, types.Alert{
			Severity:         types.ParseSeverity(a.Severity),
			Kind:             a.Type,
			Message:          a.Message,
			MessageLocalized: a.MessageML,
		})
	}

	return &types.CurrentPayload{
		Weather: types.WeatherSnapshot{
			Temperature:   r.Weather.Temperature,
			Humidity:      r.Weather.Humidity,
			WindSpeed:     r.Weather.WindSpeed,
			Precipitation: r.Weather.Precipitation,
			WeatherCode:   r.Weather.WeatherCode,
			Timestamp:     parseTimestamp(r.Weather.Timestamp, clock),
		},
		Forecast:       forecast,
		Alerts:         alerts,
		TelegramLinked: r.TelegramLinked,
	}
}

func orDefault(series, fallback []float64) []float64 {
	if len(series) == 0 {
		return fallback
	}
	return series
}
