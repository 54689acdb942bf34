package weather

import (
	"context"
	"strings"

	"github.com/i474232898/weather-des/internal/recordstore"
)

// ForecastPoints is the number of three-hour forecast steps covering 24 hours.
const ForecastPoints = 8

// ForecastProvider abstracts a forecast source (OpenWeatherMap, Open-Meteo).
type ForecastProvider interface {
	Name() string
	// Forecast returns up to points three-hourly temperatures for city,
	// oldest first.
	Forecast(ctx context.Context, city string, points int) ([]ForecastPoint, error)
}

// Record-store tables used by the screens.
const (
	TableWeatherData       = "weatherData"
	TableMergedWeatherData = "mergedWeatherData"
	TableOpenWeather       = "openweather"
	TableMergedCurrentData = "mergedcurrentdata"
)

// The service sizes text columns from the example row, so examples carry
// strings as long as the widest value we expect.
var (
	weatherDataExample = recordstore.Record{
		"city":        strings.Repeat("A", 50),
		"month":       strings.Repeat("A", 50),
		"temperature": 22.2,
		"year":        2024,
	}
	mergedWeatherDataExample = recordstore.Record{
		"city":        strings.Repeat("A", 50),
		"country":     CountryNewZealand,
		"month":       strings.Repeat("A", 50),
		"temperature": 22.2,
		"year":        2024,
	}
	openWeatherExample = recordstore.Record{
		"city":        strings.Repeat("A", 50),
		"temperature": 22.2,
		"timestamp":   "2024-11-10 00:00:00",
	}
	mergedCurrentExample = recordstore.Record{
		"city":        strings.Repeat("A", 50),
		"country":     strings.Repeat("A", 20),
		"temperature": 22.5,
		"timestamp":   "2024-11-10 00:00:00",
	}
)

// recreate drops table and creates it again from example.
func recreate(ctx context.Context, store recordstore.Store, table string, example recordstore.Record) error {
	if err := store.Drop(ctx, table); err != nil {
		return err
	}
	return store.Create(ctx, table, example)
}
