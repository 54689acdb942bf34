package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/recordstore"
)

// HistoricalService backs the Historical Data and Yearly Comparison
// screens. It publishes the local monthly CSV data into the record store
// and answers city/year queries from there.
//
// Publishing drops and recreates tables, so every publish, merge and query
// runs under mu. Readers never see a table between its drop and refill.
type HistoricalService struct {
	store   recordstore.Store
	dataset *Dataset
	logger  *zap.Logger

	mu sync.Mutex
}

func NewHistoricalService(store recordstore.Store, dataset *Dataset, logger *zap.Logger) *HistoricalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoricalService{store: store, dataset: dataset, logger: logger}
}

// PublishNZ replaces the weatherData table with the content of the New
// Zealand CSV file.
func (s *HistoricalService) PublishNZ(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishNZ(ctx)
}

func (s *HistoricalService) publishNZ(ctx context.Context) error {
	rows, err := s.dataset.NZMonthly()
	if err != nil {
		return fmt.Errorf("read New Zealand dataset: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: New Zealand dataset is empty", ErrNoData)
	}

	if err := recreate(ctx, s.store, TableWeatherData, weatherDataExample); err != nil {
		return fmt.Errorf("recreate %s: %w", TableWeatherData, err)
	}

	records := make([]recordstore.Record, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	if err := s.store.Put(ctx, TableWeatherData, records...); err != nil {
		return fmt.Errorf("store %s: %w", TableWeatherData, err)
	}

	s.logger.Info("published New Zealand dataset", zap.Int("records", len(records)))
	return nil
}

// CityYear reads one city's year from weatherData, ordered by month.
func (s *HistoricalService) CityYear(ctx context.Context, city string, year int) (Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cityYear(ctx, city, year)
}

func (s *HistoricalService) cityYear(ctx context.Context, city string, year int) (Series, error) {
	where := recordstore.And(recordstore.Eq("city", city), recordstore.Eq("year", year))
	records, err := s.store.Select(ctx, TableWeatherData, where)
	if err != nil {
		return Series{}, s.queryError(err, "%s in %d", city, year)
	}

	rows, err := decodeMonthly(records)
	if err != nil {
		return Series{}, err
	}
	if err := SortByMonth(rows); err != nil {
		return Series{}, err
	}
	return monthlySeries(city, CountryNewZealand, rows), nil
}

// FetchCityYear republishes the New Zealand data and reads one city's year.
func (s *HistoricalService) FetchCityYear(ctx context.Context, city string, year int) (Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.publishNZ(ctx); err != nil {
		return Series{}, err
	}
	return s.cityYear(ctx, city, year)
}

// BuildMerged rebuilds mergedWeatherData from every weatherData row
// (tagged New Zealand) followed by the Canadian CSV rows (tagged Canada).
func (s *HistoricalService) BuildMerged(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildMerged(ctx)
}

func (s *HistoricalService) buildMerged(ctx context.Context) error {
	if err := recreate(ctx, s.store, TableMergedWeatherData, mergedWeatherDataExample); err != nil {
		return fmt.Errorf("recreate %s: %w", TableMergedWeatherData, err)
	}

	nzRecords, err := s.store.All(ctx, TableWeatherData)
	if err != nil {
		return s.queryError(err, "New Zealand records in %s", TableWeatherData)
	}
	nz, err := decodeMonthly(nzRecords)
	if err != nil {
		return err
	}

	canadian, err := s.dataset.CanadianMonthly()
	if err != nil {
		return fmt.Errorf("read Canadian dataset: %w", err)
	}
	if len(canadian) == 0 {
		return fmt.Errorf("%w: Canadian dataset is empty", ErrNoData)
	}

	merged := make([]recordstore.Record, 0, len(nz)+len(canadian))
	for _, r := range nz {
		r.Country = CountryNewZealand
		merged = append(merged, r.Record())
	}
	for _, r := range canadian {
		r.Country = CountryCanada
		merged = append(merged, r.Record())
	}

	if err := s.store.Put(ctx, TableMergedWeatherData, merged...); err != nil {
		return fmt.Errorf("store %s: %w", TableMergedWeatherData, err)
	}

	s.logger.Info("built merged dataset",
		zap.Int("nz_records", len(nz)),
		zap.Int("canadian_records", len(canadian)))
	return nil
}

// Compare reads both cities' year from mergedWeatherData. Both cities must
// have data.
func (s *HistoricalService) Compare(ctx context.Context, nzCity, canadianCity string, year int) (Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare(ctx, nzCity, canadianCity, year)
}

func (s *HistoricalService) compare(ctx context.Context, nzCity, canadianCity string, year int) (Comparison, error) {
	where := recordstore.And(
		recordstore.Or(recordstore.Eq("city", nzCity), recordstore.Eq("city", canadianCity)),
		recordstore.Eq("year", year),
	)
	records, err := s.store.Select(ctx, TableMergedWeatherData, where)
	if err != nil {
		return Comparison{}, s.queryError(err, "%s and %s in %d", nzCity, canadianCity, year)
	}

	rows, err := decodeMonthly(records)
	if err != nil {
		return Comparison{}, err
	}
	if err := SortByMonth(rows); err != nil {
		return Comparison{}, err
	}

	var nz, canadian []MonthlyTemperature
	for _, r := range rows {
		switch r.City {
		case nzCity:
			nz = append(nz, r)
		case canadianCity:
			canadian = append(canadian, r)
		}
	}
	if len(nz) == 0 || len(canadian) == 0 {
		return Comparison{}, fmt.Errorf("%w: need data for both %s and %s in %d", ErrNoData, nzCity, canadianCity, year)
	}

	return Comparison{
		NZ:       monthlySeries(nzCity, CountryNewZealand, nz),
		Canadian: monthlySeries(canadianCity, CountryCanada, canadian),
	}, nil
}

// FetchComparison rebuilds the merged table and compares two cities.
func (s *HistoricalService) FetchComparison(ctx context.Context, nzCity, canadianCity string, year int) (Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buildMerged(ctx); err != nil {
		return Comparison{}, err
	}
	return s.compare(ctx, nzCity, canadianCity, year)
}

func (s *HistoricalService) queryError(err error, format string, args ...any) error {
	if errors.Is(err, recordstore.ErrNoData) || errors.Is(err, recordstore.ErrNoTable) {
		return fmt.Errorf("%w: %s", ErrNoData, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("query %s: %w", fmt.Sprintf(format, args...), err)
}

func decodeMonthly(records []recordstore.Record) ([]MonthlyTemperature, error) {
	rows := make([]MonthlyTemperature, 0, len(records))
	for _, rec := range records {
		m, err := monthlyFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, m)
	}
	return rows, nil
}
