package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-des/internal/resilience"
	"github.com/i474232898/weather-des/internal/weather"
)

// OpenWeatherProvider implements weather.ForecastProvider with the
// OpenWeatherMap 5 day / 3 hour forecast endpoint.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff(),
		},
		circuit: resilience.NewBreaker("openweather"),
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Forecast(ctx context.Context, city string, points int) ([]weather.ForecastPoint, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}
	if points <= 0 {
		return nil, fmt.Errorf("points must be greater than zero")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("units", "metric")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := resilience.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Cod     json.RawMessage `json:"cod"`
		Message json.RawMessage `json:"message"`
		List    []struct {
			Dt    int64  `json:"dt"`
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	// cod is a string on success and sometimes a number on errors.
	if cod := strings.Trim(string(payload.Cod), `"`); cod != "200" {
		return nil, fmt.Errorf("openweather returned cod %s: %s", cod, strings.Trim(string(payload.Message), `"`))
	}

	n := min(points, len(payload.List))
	out := make([]weather.ForecastPoint, 0, n)
	for _, entry := range payload.List[:n] {
		ts := entry.DtTxt
		if ts == "" {
			ts = time.Unix(entry.Dt, 0).UTC().Format(weather.TimestampLayout)
		}
		out = append(out, weather.ForecastPoint{
			City:        city,
			Temperature: entry.Main.Temp,
			Timestamp:   ts,
		})
	}
	return out, nil
}
