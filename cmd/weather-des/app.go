package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/catalog"
	"github.com/i474232898/weather-des/internal/chat"
	"github.com/i474232898/weather-des/internal/config"
	"github.com/i474232898/weather-des/internal/recordstore"
	"github.com/i474232898/weather-des/internal/users"
	"github.com/i474232898/weather-des/internal/weather"
	"github.com/i474232898/weather-des/internal/weather/providers"
)

// services is everything the commands are built from.
type services struct {
	catalog    *catalog.Catalog
	store      recordstore.Store
	dataset    *weather.Dataset
	historical *weather.HistoricalService
	current    *weather.CurrentService
	users      *users.Manager
	chat       *chat.Service

	close func() error
}

func buildServices(cfg *config.AppConfig, logger *zap.Logger) (*services, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound record-store and forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	store, closeStore, err := openStore(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg, httpClient, cat)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	dataset := weather.NewDataset(cfg.DataDir, logger)

	return &services{
		catalog:    cat,
		store:      store,
		dataset:    dataset,
		historical: weather.NewHistoricalService(store, dataset, logger),
		current:    weather.NewCurrentService(store, dataset, provider, logger),
		users:      users.NewManager(store, logger),
		chat:       chat.NewService(store, logger),
		close:      closeStore,
	}, nil
}

func openStore(cfg *config.AppConfig, client *http.Client, logger *zap.Logger) (recordstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.RecordStore {
	case config.StoreJSNDrop:
		s := recordstore.NewJSNDropClient(client, cfg.JSNDropToken,
			recordstore.WithBaseURL(cfg.JSNDropURL),
			recordstore.WithLogger(logger),
		)
		return s, noop, nil
	case config.StoreSQLite:
		s, err := recordstore.OpenSQLiteStore(cfg.SQLitePath, cfg.LogLevel == "debug", logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreMemory:
		return recordstore.NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

func newProvider(cfg *config.AppConfig, client *http.Client, cat *catalog.Catalog) (weather.ForecastProvider, error) {
	switch cfg.ForecastProvider {
	case config.ProviderOpenWeather:
		return providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey), nil
	case config.ProviderOpenMeteo:
		// Open-Meteo needs no API key; coordinates come from the catalogue.
		return providers.NewOpenMeteoProvider(client, cat), nil
	default:
		return nil, fmt.Errorf("unknown forecast provider %q", cfg.ForecastProvider)
	}
}
