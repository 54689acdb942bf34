package weather

import (
	"errors"
	"fmt"
	"slices"

	"github.com/i474232898/weather-des/internal/recordstore"
)

const (
	CountryNewZealand = "New Zealand"
	CountryCanada     = "Canada"
)

var (
	// ErrNoData is returned when a query has nothing to show.
	ErrNoData = errors.New("no weather data")

	// ErrUnknownMonth is returned for month labels outside Jan..Dec.
	ErrUnknownMonth = errors.New("unknown month")
)

// Months is the chart order of month labels.
var Months = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthIndex returns the zero-based position of a month label.
func MonthIndex(month string) (int, error) {
	i := slices.Index(Months, month)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, month)
	}
	return i, nil
}

// MonthlyTemperature is the mean temperature of one city for one month.
type MonthlyTemperature struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Month       string  `json:"month"`
	Temperature float64 `json:"temperature"`
	Year        int     `json:"year"`
}

// Record converts m to a record-store row. Country is only written when set.
func (m MonthlyTemperature) Record() recordstore.Record {
	r := recordstore.Record{
		"city":        m.City,
		"month":       m.Month,
		"temperature": m.Temperature,
		"year":        m.Year,
	}
	if m.Country != "" {
		r["country"] = m.Country
	}
	return r
}

func monthlyFromRecord(r recordstore.Record) (MonthlyTemperature, error) {
	temp, ok := r.Float("temperature")
	if !ok {
		return MonthlyTemperature{}, fmt.Errorf("record for %q has no temperature", r.String("city"))
	}
	year, ok := r.Int("year")
	if !ok {
		return MonthlyTemperature{}, fmt.Errorf("record for %q has no year", r.String("city"))
	}
	return MonthlyTemperature{
		City:        r.String("city"),
		Country:     r.String("country"),
		Month:       r.String("month"),
		Temperature: temp,
		Year:        year,
	}, nil
}

// ForecastPoint is one timestamped temperature reading.
// Timestamp uses the forecast API layout "2006-01-02 15:04:05".
type ForecastPoint struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
}

// TimestampLayout is the layout of ForecastPoint.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

func (p ForecastPoint) Record() recordstore.Record {
	r := recordstore.Record{
		"city":        p.City,
		"temperature": p.Temperature,
		"timestamp":   p.Timestamp,
	}
	if p.Country != "" {
		r["country"] = p.Country
	}
	return r
}

func forecastFromRecord(r recordstore.Record) (ForecastPoint, error) {
	temp, ok := r.Float("temperature")
	if !ok {
		return ForecastPoint{}, fmt.Errorf("record for %q has no temperature", r.String("city"))
	}
	return ForecastPoint{
		City:        r.String("city"),
		Country:     r.String("country"),
		Temperature: temp,
		Timestamp:   r.String("timestamp"),
	}, nil
}

// Series is a labelled list of temperatures ready for charting.
type Series struct {
	City    string    `json:"city"`
	Country string    `json:"country"`
	Labels  []string  `json:"labels"`
	Values  []float64 `json:"values"`
	Summary Summary   `json:"summary"`
}

// Comparison pairs a New Zealand series with a Canadian one.
type Comparison struct {
	NZ       Series `json:"nz"`
	Canadian Series `json:"canadian"`
}

// SortByMonth orders rows Jan..Dec, keeping the input order of equal months.
func SortByMonth(rows []MonthlyTemperature) error {
	for _, r := range rows {
		if _, err := MonthIndex(r.Month); err != nil {
			return err
		}
	}
	slices.SortStableFunc(rows, func(a, b MonthlyTemperature) int {
		ai, _ := MonthIndex(a.Month)
		bi, _ := MonthIndex(b.Month)
		return ai - bi
	})
	return nil
}

func monthlySeries(city, country string, rows []MonthlyTemperature) Series {
	s := Series{City: city, Country: country}
	for _, r := range rows {
		s.Labels = append(s.Labels, r.Month)
		s.Values = append(s.Values, r.Temperature)
	}
	s.Summary = Summarize(s.Values)
	return s
}

func forecastSeries(city, country string, points []ForecastPoint) Series {
	s := Series{City: city, Country: country}
	for _, p := range points {
		s.Labels = append(s.Labels, p.Timestamp)
		s.Values = append(s.Values, p.Temperature)
	}
	s.Summary = Summarize(s.Values)
	return s
}
