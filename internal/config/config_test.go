package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "8085", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "csrftoken", cfg.Backend.CSRFCookie)
	assert.Equal(t, 30*time.Minute, cfg.Widget.RefreshInterval)
	assert.Equal(t, "en", cfg.Widget.Language)
	assert.Equal(t, 3*time.Second, cfg.Linking.PollInterval)
	assert.Equal(t, "https://t.me/harvestsyncbot", cfg.Linking.BotURL)
	assert.Equal(t, 3*time.Second, cfg.Escalation.ToastDuration)
	assert.Equal(t, 300*time.Millisecond, cfg.Escalation.ToastExit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://farm.example.com")
	t.Setenv("REFRESH_INTERVAL", "5m")
	t.Setenv("WIDGET_LANGUAGE", "ml")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://farm.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Widget.RefreshInterval)
	assert.Equal(t, "ml", cfg.Widget.Language)
}

func TestLoad_InvalidLanguage(t *testing.T) {
	t.Setenv("WIDGET_LANGUAGE", "fr")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "not-a-url")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_RefreshIntervalTooShort(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "10ms")

	_, err := Load("")
	require.Error(t, err)
}
