package widget

import (
	"fmt"
	"math"
	"time"

	"harvestwatch/internal/alerts"
	"harvestwatch/internal/escalation"
	"harvestwatch/internal/types"
)

// RenderModel is the complete view state of the widget: everything a
// presentation layer needs to draw one frame, with all numbers already
// formatted and all strings already localized.
type RenderModel struct {
	Phase    types.Phase `json:"phase"`
	Title    string      `json:"title"`
	Language string      `json:"language"`
	Location string      `json:"location,omitempty"`

	Current  *CurrentView   `json:"current,omitempty"`
	Forecast []ForecastCard `json:"forecast,omitempty"`
	Stats    *QuickStats    `json:"stats,omitempty"`

	Banner *escalation.Banner `json:"banner,omitempty"`
	Toasts []escalation.Toast `json:"toasts"`

	Link           *types.LinkSession `json:"link,omitempty"`
	TelegramStatus string             `json:"telegram_status"`
	TelegramLinked bool               `json:"telegram_linked"`

	InFlight    bool      `json:"in_flight"`
	LastError   string    `json:"last_error,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// CurrentView is the formatted current-conditions block.
type CurrentView struct {
	Icon          string `json:"icon"`
	Description   string `json:"description"`
	Temperature   string `json:"temperature"`
	Humidity      string `json:"humidity"`
	WindSpeed     string `json:"wind_speed"`
	Precipitation string `json:"precipitation"`
}

// ForecastCard is one formatted day of the forecast strip.
type ForecastCard struct {
	Day           string `json:"day"`
	Icon          string `json:"icon"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Precipitation string `json:"precipitation"`
	WindMax       string `json:"wind_max"`
}

// QuickStats summarizes the forecast horizon: total expected rainfall and
// average daily high, each with a coarse trend marker.
type QuickStats struct {
	TotalRainfall string `json:"total_rainfall"`
	RainTrend     string `json:"rain_trend"` // "high" or "normal"
	AvgHigh       string `json:"avg_high"`
	TempTrend     string `json:"temp_trend"` // "warm" or "normal"
}

const (
	rainTrendThreshold = 20.0 // mm over the horizon
	tempTrendThreshold = 30.0 // °C average daily high
)

func formatTemp(v float64) string {
	return fmt.Sprintf("%d°", int(math.Round(v)))
}

func formatWind(v float64) string {
	return fmt.Sprintf("%d km/h", int(math.Round(v)))
}

func formatPrecip(v float64) string {
	return fmt.Sprintf("%d mm", int(math.Round(v)))
}

func formatHumidity(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v)))
}

func currentView(snap types.WeatherSnapshot, lang string) *CurrentView {
	c := alerts.Classify(snap.WeatherCode, lang)
	return &CurrentView{
		Icon:          c.Icon,
		Description:   c.Description,
		Temperature:   formatTemp(snap.Temperature),
		Humidity:      formatHumidity(snap.Humidity),
		WindSpeed:     formatWind(snap.WindSpeed),
		Precipitation: formatPrecip(snap.Precipitation),
	}
}

// forecastCards is bounded by the shortest present series so a misaligned
// forecast renders fewer cards instead of indexing out of range.
func forecastCards(f types.ForecastSeries, lang string) []ForecastCard {
	n := len(f.TempMax)
	for _, s := range [][]float64{f.TempMin, f.Precipitation, f.WindMax} {
		if len(s) < n {
			n = len(s)
		}
	}
	if n > types.ForecastDays {
		n = types.ForecastDays
	}
	cards := make([]ForecastCard, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, ForecastCard{
			Day:           alerts.DayName(i, lang),
			Icon:          alerts.ForecastIcon(f.Precipitation[i], f.TempMax[i]),
			High:          formatTemp(f.TempMax[i]),
			Low:           formatTemp(f.TempMin[i]),
			Precipitation: formatPrecip(f.Precipitation[i]),
			WindMax:       formatWind(f.WindMax[i]),
		})
	}
	return cards
}

func quickStats(f types.ForecastSeries) *QuickStats {
	if len(f.TempMax) == 0 {
		return nil
	}

	var totalRain, sumHigh float64
	for _, p := range f.Precipitation {
		totalRain += p
	}
	for _, h := range f.TempMax {
		sumHigh += h
	}
	avgHigh := sumHigh / float64(len(f.TempMax))

	rainTrend := "normal"
	if totalRain > rainTrendThreshold {
		rainTrend = "high"
	}
	tempTrend := "normal"
	if avgHigh > tempTrendThreshold {
		tempTrend = "warm"
	}

	return &QuickStats{
		TotalRainfall: formatPrecip(totalRain),
		RainTrend:     rainTrend,
		AvgHigh:       formatTemp(avgHigh),
		TempTrend:     tempTrend,
	}
}
