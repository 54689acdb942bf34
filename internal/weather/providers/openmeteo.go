package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-des/internal/catalog"
	"github.com/i474232898/weather-des/internal/resilience"
	"github.com/i474232898/weather-des/internal/weather"
)

// CityLocator resolves a city name to coordinates.
type CityLocator interface {
	Lookup(name string) (catalog.City, bool)
}

// OpenMeteoProvider implements weather.ForecastProvider with Open-Meteo's
// hourly forecast, sampled every three hours to line up with the
// OpenWeatherMap steps. It needs no API key but only knows catalogue cities.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	locator CityLocator
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, locator CityLocator) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		locator: locator,
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff(),
		},
		circuit: resilience.NewBreaker("openmeteo"),
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

const openMeteoStepHours = 3

func (p *OpenMeteoProvider) Forecast(ctx context.Context, city string, points int) ([]weather.ForecastPoint, error) {
	if points <= 0 {
		return nil, fmt.Errorf("points must be greater than zero")
	}
	loc, ok := p.locator.Lookup(city)
	if !ok {
		return nil, fmt.Errorf("openmeteo has no coordinates for %q", city)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("hourly", "temperature_2m")
		values.Set("forecast_hours", fmt.Sprintf("%d", points*openMeteoStepHours))
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := resilience.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time          []string  `json:"time"`
			Temperature2m []float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	times, temps := payload.Hourly.Time, payload.Hourly.Temperature2m
	if len(times) != len(temps) {
		return nil, fmt.Errorf("openmeteo returned %d times for %d temperatures", len(times), len(temps))
	}

	out := make([]weather.ForecastPoint, 0, points)
	for i := 0; i < len(times) && len(out) < points; i += openMeteoStepHours {
		ts, err := time.Parse("2006-01-02T15:04", times[i])
		if err != nil {
			return nil, fmt.Errorf("parse openmeteo time %q: %w", times[i], err)
		}
		out = append(out, weather.ForecastPoint{
			City:        city,
			Temperature: temps[i],
			Timestamp:   ts.Format(weather.TimestampLayout),
		})
	}
	return out, nil
}
