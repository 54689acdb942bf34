package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-des/internal/recordstore"
)

// Record-store backends.
const (
	StoreJSNDrop = "jsndrop"
	StoreSQLite  = "sqlite"
	StoreMemory  = "memory"
)

// Forecast API providers.
const (
	ProviderOpenWeather = "openweather"
	ProviderOpenMeteo   = "openmeteo"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	RecordStore  string
	JSNDropURL   string
	JSNDropToken string
	SQLitePath   string

	ForecastProvider  string
	OpenWeatherAPIKey string

	// DataDir holds the bundled CSV datasets.
	DataDir string

	// RefreshInterval controls how often the datasets are republished
	// to the record store (0 = never).
	RefreshInterval time.Duration

	// Size of rendered PNG charts.
	ChartWidth  int
	ChartHeight int

	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.RecordStore = strings.ToLower(getenvDefault("RECORD_STORE", StoreJSNDrop))
	switch cfg.RecordStore {
	case StoreJSNDrop, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid RECORD_STORE %q: want %s, %s or %s",
			cfg.RecordStore, StoreJSNDrop, StoreSQLite, StoreMemory)
	}
	cfg.JSNDropURL = getenvDefault("JSNDROP_URL", recordstore.DefaultJSNDropURL)
	cfg.JSNDropToken = os.Getenv("JSNDROP_TOKEN")
	if cfg.RecordStore == StoreJSNDrop && cfg.JSNDropToken == "" {
		return nil, fmt.Errorf("JSNDROP_TOKEN is required when RECORD_STORE=%s", StoreJSNDrop)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "weather-des.db")

	cfg.ForecastProvider = strings.ToLower(getenvDefault("FORECAST_PROVIDER", ProviderOpenWeather))
	switch cfg.ForecastProvider {
	case ProviderOpenWeather, ProviderOpenMeteo:
	default:
		return nil, fmt.Errorf("invalid FORECAST_PROVIDER %q: want %s or %s",
			cfg.ForecastProvider, ProviderOpenWeather, ProviderOpenMeteo)
	}
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	cfg.DataDir = getenvDefault("DATA_DIR", "DataSet")

	refresh, err := time.ParseDuration(getenvDefault("REFRESH_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if refresh < 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %s is negative", refresh)
	}
	cfg.RefreshInterval = refresh

	cfg.ChartWidth = getenvInt("CHART_WIDTH", 800)
	cfg.ChartHeight = getenvInt("CHART_HEIGHT", 500)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
