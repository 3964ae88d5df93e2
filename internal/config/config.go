package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/geoweather/internal/location"
)

// Store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Geocoder backends.
const (
	GeocoderOpenWeather = "openweather"
	GeocoderGoogle      = "google"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Port          string
	BearerToken   string
	MigrationsDir string

	OpenWeatherAPIKey string
	Geocoder          string
	GoogleMapsAPIKey  string

	Store          string
	RedisURL       string
	DatabaseURL    string
	StoreNamespace string

	Location location.Config
}

// Load reads configuration from the environment, after applying a .env file when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "err", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv. Missing optional values take their defaults.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &AppConfig{
		Port:              env("PORT", "8080"),
		BearerToken:       getenv("BEARER_TOKEN"),
		MigrationsDir:     env("MIGRATIONS_DIR", "migrations"),
		OpenWeatherAPIKey: getenv("OPENWEATHER_API_KEY"),
		Geocoder:          env("GEOCODER", GeocoderOpenWeather),
		GoogleMapsAPIKey:  getenv("GOOGLE_MAPS_API_KEY"),
		Store:             env("STORE", StoreRedis),
		RedisURL:          getenv("REDIS_URL"),
		DatabaseURL:       getenv("DATABASE_URL"),
		StoreNamespace:    getenv("STORE_NAMESPACE"),
	}

	var err error
	if cfg.Location.AccuracyThreshold, err = parseFloat(env("ACCURACY_THRESHOLD_METERS", "50")); err != nil {
		return nil, fmt.Errorf("invalid ACCURACY_THRESHOLD_METERS: %w", err)
	}
	if cfg.Location.AcquisitionTimeout, err = time.ParseDuration(env("ACQUISITION_TIMEOUT", "20s")); err != nil {
		return nil, fmt.Errorf("invalid ACQUISITION_TIMEOUT: %w", err)
	}
	if cfg.Location.RefreshInterval, err = time.ParseDuration(env("AUTO_REFRESH_INTERVAL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_REFRESH_INTERVAL: %w", err)
	}
	if cfg.Location.ValidityWindow, err = time.ParseDuration(env("VALIDITY_WINDOW", "5m")); err != nil {
		return nil, fmt.Errorf("invalid VALIDITY_WINDOW: %w", err)
	}
	if cfg.Location.SingleFlight, err = strconv.ParseBool(env("SINGLE_FLIGHT", "false")); err != nil {
		return nil, fmt.Errorf("invalid SINGLE_FLIGHT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.BearerToken == "" {
		return errors.New("BEARER_TOKEN is required")
	}
	if c.OpenWeatherAPIKey == "" {
		return errors.New("OPENWEATHER_API_KEY is required")
	}

	switch c.Geocoder {
	case GeocoderOpenWeather:
	case GeocoderGoogle:
		if c.GoogleMapsAPIKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is required when GEOCODER=google")
		}
	default:
		return fmt.Errorf("unknown GEOCODER %q", c.Geocoder)
	}

	switch c.Store {
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.Location.AccuracyThreshold <= 0 {
		return errors.New("ACCURACY_THRESHOLD_METERS must be positive")
	}
	if c.Location.AcquisitionTimeout <= 0 || c.Location.RefreshInterval <= 0 || c.Location.ValidityWindow <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
