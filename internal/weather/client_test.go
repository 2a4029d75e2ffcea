package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestwatch/internal/types"
)

const currentBody = `{
	"weather": {
		"temperature": 34.6,
		"humidity": 88,
		"wind_speed": 42,
		"precipitation": 0,
		"weather_code": 2,
		"timestamp": "2026-08-30T10:15",
		"daily_forecast": {
			"temp_max": [36, 34, 33],
			"temp_min": [26, 25, 24],
			"precipitation": [0, 12, 4],
			"wind_max": [42, 30, 22],
			"uv_index": [9, 8, 7]
		}
	},
	"alerts": [
		{"type": "strong_wind", "severity": "high", "message": "Strong Wind Warning", "message_ml": "ശക്തമായ കാറ്റ്"}
	],
	"telegram_linked": false
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		UserAgent:  "HarvestWatch-Widget/1.0",
		CSRF:       StaticCSRF("tok-1"),
		Clock:      clockwork.NewFakeClock(),
	})
	return client, srv
}

func TestFetchCurrent_NormalizesPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/weather/current/", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-CSRFToken"))
		w.Write([]byte(currentBody))
	}))

	payload, err := client.FetchCurrent(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 34.6, payload.Weather.Temperature, 0.001)
	assert.Equal(t, 2, payload.Weather.WeatherCode)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC), payload.Weather.Timestamp)
	assert.Equal(t, []float64{36, 34, 33}, payload.Forecast.TempMax)
	assert.Equal(t, []float64{9, 8, 7}, payload.Forecast.UVIndex)
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, types.SeveritySevere, payload.Alerts[0].Severity)
	assert.Equal(t, "strong_wind", payload.Alerts[0].Kind)
	assert.Equal(t, "ശക്തമായ കാറ്റ്", payload.Alerts[0].MessageLocalized)
	assert.False(t, payload.TelegramLinked)
}

func TestFetchCurrent_ForecastFallbackDefaults(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No daily_forecast block at all.
		w.Write([]byte(`{"weather": {"temperature": 28, "weather_code": 1, "timestamp": "bogus"}, "alerts": [], "telegram_linked": true}`))
	}))

	payload, err := client.FetchCurrent(context.Background())
	require.NoError(t, err)

	defaults := types.DefaultForecast()
	assert.Equal(t, defaults.TempMax, payload.Forecast.TempMax)
	assert.Equal(t, defaults.TempMin, payload.Forecast.TempMin)
	assert.Equal(t, defaults.Precipitation, payload.Forecast.Precipitation)
	assert.Equal(t, defaults.WindMax, payload.Forecast.WindMax)
	assert.Empty(t, payload.Forecast.UVIndex)
	assert.True(t, payload.TelegramLinked)
	// Unparseable timestamp falls back to the client clock.
	assert.False(t, payload.Weather.Timestamp.IsZero())
}

func TestFetchCurrent_MisalignedForecastUsesFallback(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// precipitation has one entry while the other series carry three.
		w.Write([]byte(`{"weather": {"temperature": 28, "weather_code": 1,
			"timestamp": "2026-08-30T10:15:00Z",
			"daily_forecast": {"temp_max": [36, 34, 33], "temp_min": [24, 23, 22],
				"precipitation": [1], "wind_max": [20, 18, 16]}},
			"alerts": [], "telegram_linked": false}`))
	}))

	payload, err := client.FetchCurrent(context.Background())
	require.NoError(t, err)

	defaults := types.DefaultForecast()
	assert.Equal(t, defaults.TempMax, payload.Forecast.TempMax)
	assert.Equal(t, defaults.TempMin, payload.Forecast.TempMin)
	assert.Equal(t, defaults.Precipitation, payload.Forecast.Precipitation)
	assert.Equal(t, defaults.WindMax, payload.Forecast.WindMax)
	require.NoError(t, payload.Forecast.Validate())
}

func TestFetchCurrent_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.FetchCurrent(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestSendTestAlert_EchoesCSRFToken(t *testing.T) {
	var gotToken string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/weather/test-alert/", r.URL.Path)
		gotToken = r.Header.Get("X-CSRFToken")
		w.Write([]byte(currentBody))
	}))

	payload, err := client.SendTestAlert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", gotToken)
	require.Len(t, payload.Alerts, 1)
}

func TestGenerateLinkCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/telegram/generate-code/", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get("X-CSRFToken"))
		json.NewEncoder(w).Encode(map[string]string{"code": "482913"})
	}))

	code, err := client.GenerateLinkCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "482913", code)
}

func TestGenerateLinkCode_EmptyCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.GenerateLinkCode(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamTelegram, appErr.Code)
}

func TestCheckUpdates(t *testing.T) {
	var called bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/api/telegram/check-updates/", r.URL.Path)
		w.Write([]byte(`{"ok": true}`))
	}))

	require.NoError(t, client.CheckUpdates(context.Background()))
	assert.True(t, called)
}

func TestCookieCSRF_Token(t *testing.T) {
	jar := newFakeJar(&http.Cookie{Name: "csrftoken", Value: "cookie-tok"})
	src, err := NewCookieCSRF(jar, "http://farm.example.com", "csrftoken")
	require.NoError(t, err)
	assert.Equal(t, "cookie-tok", src.Token())

	empty, err := NewCookieCSRF(newFakeJar(), "http://farm.example.com", "csrftoken")
	require.NoError(t, err)
	assert.Empty(t, empty.Token())
}

type fakeJar struct {
	cookies []*http.Cookie
}

func newFakeJar(cookies ...*http.Cookie) *fakeJar {
	return &fakeJar{cookies: cookies}
}

func (j *fakeJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.cookies = append(j.cookies, cookies...)
}

func (j *fakeJar) Cookies(_ *url.URL) []*http.Cookie {
	return j.cookies
}
