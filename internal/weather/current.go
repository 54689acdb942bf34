package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/recordstore"
)

// CurrentService backs the Current Condition screen: a 24 hour forecast
// for a New Zealand city, optionally compared with a Canadian city's
// current readings.
type CurrentService struct {
	store    recordstore.Store
	dataset  *Dataset
	provider ForecastProvider
	logger   *zap.Logger

	// mu guards the drop and refill of openweather and mergedcurrentdata.
	mu sync.Mutex
}

func NewCurrentService(store recordstore.Store, dataset *Dataset, provider ForecastProvider, logger *zap.Logger) *CurrentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurrentService{
		store:    store,
		dataset:  dataset,
		provider: provider,
		logger:   logger,
	}
}

// FetchForecast gets the next 24 hours for city and replaces the
// openweather table with it. The table is left untouched when the
// provider fails.
func (s *CurrentService) FetchForecast(ctx context.Context, city string) (Series, error) {
	if s.provider == nil {
		return Series{}, fmt.Errorf("no forecast provider configured")
	}

	points, err := s.provider.Forecast(ctx, city, ForecastPoints)
	if err != nil {
		s.logger.Warn("forecast fetch failed",
			zap.String("provider", s.provider.Name()),
			zap.String("city", city),
			zap.Error(err))
		return Series{}, fmt.Errorf("fetch forecast for %s: %w", city, err)
	}
	if len(points) == 0 {
		return Series{}, fmt.Errorf("%w: empty forecast for %s", ErrNoData, city)
	}
	if len(points) > ForecastPoints {
		points = points[:ForecastPoints]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := recreate(ctx, s.store, TableOpenWeather, openWeatherExample); err != nil {
		return Series{}, fmt.Errorf("recreate %s: %w", TableOpenWeather, err)
	}
	records := make([]recordstore.Record, len(points))
	for i, p := range points {
		p.City = city
		p.Country = ""
		records[i] = p.Record()
	}
	if err := s.store.Put(ctx, TableOpenWeather, records...); err != nil {
		return Series{}, fmt.Errorf("store %s: %w", TableOpenWeather, err)
	}

	s.logger.Info("stored forecast",
		zap.String("provider", s.provider.Name()),
		zap.String("city", city),
		zap.Int("points", len(points)))
	return forecastSeries(city, CountryNewZealand, points), nil
}

// Compare merges the stored forecast of nzCity with the current readings
// of canadianCity into mergedcurrentdata. FetchForecast must have run for
// nzCity first.
func (s *CurrentService) Compare(ctx context.Context, nzCity, canadianCity string) (Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := recreate(ctx, s.store, TableMergedCurrentData, mergedCurrentExample); err != nil {
		return Comparison{}, fmt.Errorf("recreate %s: %w", TableMergedCurrentData, err)
	}

	records, err := s.store.Select(ctx, TableOpenWeather, recordstore.Eq("city", nzCity))
	if err != nil {
		if errors.Is(err, recordstore.ErrNoData) || errors.Is(err, recordstore.ErrNoTable) {
			return Comparison{}, fmt.Errorf("%w: no stored forecast for %s", ErrNoData, nzCity)
		}
		return Comparison{}, fmt.Errorf("query %s: %w", TableOpenWeather, err)
	}

	nz := make([]ForecastPoint, 0, len(records))
	for _, rec := range records {
		p, err := forecastFromRecord(rec)
		if err != nil {
			return Comparison{}, err
		}
		p.Country = CountryNewZealand
		nz = append(nz, p)
	}

	canadian, err := s.dataset.CanadianCurrent(canadianCity)
	if err != nil {
		return Comparison{}, err
	}

	merged := make([]recordstore.Record, 0, len(nz)+len(canadian))
	for _, p := range nz {
		merged = append(merged, p.Record())
	}
	for _, p := range canadian {
		merged = append(merged, p.Record())
	}
	if err := s.store.Put(ctx, TableMergedCurrentData, merged...); err != nil {
		return Comparison{}, fmt.Errorf("store %s: %w", TableMergedCurrentData, err)
	}

	return Comparison{
		NZ:       forecastSeries(nzCity, CountryNewZealand, nz),
		Canadian: forecastSeries(canadianCity, CountryCanada, canadian),
	}, nil
}
