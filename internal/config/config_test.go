package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/geoweather/internal/config"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"BEARER_TOKEN":        "token",
		"OPENWEATHER_API_KEY": "owm",
		"REDIS_URL":           "redis://localhost:6379",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(envFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, config.GeocoderOpenWeather, cfg.Geocoder)
	assert.Equal(t, 50.0, cfg.Location.AccuracyThreshold)
	assert.Equal(t, 20*time.Second, cfg.Location.AcquisitionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Location.RefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.Location.ValidityWindow)
	assert.False(t, cfg.Location.SingleFlight)
}

func TestFromEnv_Overrides(t *testing.T) {
	env := baseEnv()
	env["ACCURACY_THRESHOLD_METERS"] = "25.5"
	env["ACQUISITION_TIMEOUT"] = "5s"
	env["AUTO_REFRESH_INTERVAL"] = "1m"
	env["VALIDITY_WINDOW"] = "10m"
	env["SINGLE_FLIGHT"] = "true"
	env["STORE"] = "postgres"
	env["DATABASE_URL"] = "postgres://localhost/db"

	cfg, err := config.FromEnv(envFrom(env))
	require.NoError(t, err)
	assert.Equal(t, 25.5, cfg.Location.AccuracyThreshold)
	assert.Equal(t, 5*time.Second, cfg.Location.AcquisitionTimeout)
	assert.Equal(t, time.Minute, cfg.Location.RefreshInterval)
	assert.Equal(t, 10*time.Minute, cfg.Location.ValidityWindow)
	assert.True(t, cfg.Location.SingleFlight)
	assert.Equal(t, config.StorePostgres, cfg.Store)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
	}{
		{"bad threshold", map[string]string{"ACCURACY_THRESHOLD_METERS": "far"}},
		{"negative threshold", map[string]string{"ACCURACY_THRESHOLD_METERS": "-1"}},
		{"bad timeout", map[string]string{"ACQUISITION_TIMEOUT": "20"}},
		{"bad interval", map[string]string{"AUTO_REFRESH_INTERVAL": "soon"}},
		{"bad single flight", map[string]string{"SINGLE_FLIGHT": "maybe"}},
		{"unknown store", map[string]string{"STORE": "floppy"}},
		{"postgres without url", map[string]string{"STORE": "postgres"}},
		{"google without key", map[string]string{"GEOCODER": "google"}},
		{"unknown geocoder", map[string]string{"GEOCODER": "carrier-pigeon"}},
		{"missing token", map[string]string{"BEARER_TOKEN": ""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range tc.set {
				env[k] = v
			}
			_, err := config.FromEnv(envFrom(env))
			require.Error(t, err)
		})
	}
}

func TestFromEnv_MemoryStoreNeedsNoURL(t *testing.T) {
	env := baseEnv()
	delete(env, "REDIS_URL")
	env["STORE"] = "memory"

	cfg, err := config.FromEnv(envFrom(env))
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, cfg.Store)
}
