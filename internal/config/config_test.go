package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.openweathermap.org/data/3.0/onecall", cfg.WeatherAPIURL)
	assert.Equal(t, "imperial", cfg.WeatherUnits)
	assert.Equal(t, 600*time.Second, cfg.CacheTTL)
	assert.Equal(t, cfg.CacheTTL, cfg.WarmInterval)
	assert.Equal(t, 38.9541848, cfg.DefaultLat)
	assert.Equal(t, -77.0832061, cfg.DefaultLon)
	assert.Equal(t, "8080", cfg.Port)
	assert.Nil(t, cfg.FallbackLLM)
	assert.True(t, cfg.LLM.SupportsJSONMode)
}

func TestLoadExplicitCoordinates(t *testing.T) {
	t.Setenv("DEFAULT_LAT", "47.6")
	t.Setenv("DEFAULT_LON", "-122.3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 47.6, cfg.DefaultLat)
	assert.Equal(t, -122.3, cfg.DefaultLon)
}

func TestLoadBadCoordinates(t *testing.T) {
	t.Setenv("DEFAULT_LAT", "north-ish")
	t.Setenv("DEFAULT_LON", "-122.3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_LAT")
}

func TestLoadPartialFallbackRejected(t *testing.T) {
	t.Setenv("FALLBACK_LLM_API_URL", "https://fallback.example/v1/chat/completions")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback")
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadCompleteFallback(t *testing.T) {
	t.Setenv("FALLBACK_LLM_API_URL", "https://fallback.example/v1/chat/completions")
	t.Setenv("FALLBACK_LLM_API_KEY", "fk")
	t.Setenv("FALLBACK_LLM_MODEL", "backup-model")
	t.Setenv("FALLBACK_LLM_SUPPORTS_JSON_MODE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.FallbackLLM)
	assert.Equal(t, "backup-model", cfg.FallbackLLM.Model)
	assert.False(t, cfg.FallbackLLM.SupportsJSONMode)
}

func TestLoadWarmIntervalOverride(t *testing.T) {
	t.Setenv("WARM_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.WarmInterval)
}
