package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Default file names inside the dataset directory.
const (
	NZDataFile              = "WeatherData.csv"
	CanadianDataFile        = "CanadianWeatherData.csv"
	CurrentCanadianDataFile = "currentCanadianweather.csv"
)

// Dataset reads the local CSV files.
//
// Monthly files have the columns city,month,temperature,year. The current
// Canadian file has city,temperature,timestamp.
type Dataset struct {
	dir    string
	logger *zap.Logger
}

func NewDataset(dir string, logger *zap.Logger) *Dataset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dataset{dir: dir, logger: logger}
}

// NZMonthly loads every row of the New Zealand monthly file.
func (d *Dataset) NZMonthly() ([]MonthlyTemperature, error) {
	return d.readMonthly(NZDataFile)
}

// CanadianMonthly loads every row of the Canadian monthly file.
func (d *Dataset) CanadianMonthly() ([]MonthlyTemperature, error) {
	return d.readMonthly(CanadianDataFile)
}

// CanadianCurrent loads the current readings of one Canadian city, tagged
// with the Canada country.
func (d *Dataset) CanadianCurrent(city string) ([]ForecastPoint, error) {
	rows, err := d.readRows(CurrentCanadianDataFile, "city", "temperature", "timestamp")
	if err != nil {
		return nil, err
	}

	var points []ForecastPoint
	for _, row := range rows {
		if row.values["city"] != city {
			continue
		}
		temp, err := strconv.ParseFloat(row.values["temperature"], 64)
		if err != nil {
			d.logger.Warn("skipping line", zap.String("file", CurrentCanadianDataFile), zap.Int("line", row.line), zap.Error(err))
			continue
		}
		points = append(points, ForecastPoint{
			City:        city,
			Country:     CountryCanada,
			Temperature: temp,
			Timestamp:   row.values["timestamp"],
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no current readings for %s", ErrNoData, city)
	}
	return points, nil
}

// LocalCityYear reads one New Zealand city's year straight from the CSV,
// ordered by month.
func (d *Dataset) LocalCityYear(city string, year int) (Series, error) {
	all, err := d.NZMonthly()
	if err != nil {
		return Series{}, err
	}

	var rows []MonthlyTemperature
	for _, r := range all {
		if r.City == city && r.Year == year {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return Series{}, fmt.Errorf("%w: no data for %s in %d", ErrNoData, city, year)
	}
	if err := SortByMonth(rows); err != nil {
		return Series{}, err
	}
	return monthlySeries(city, CountryNewZealand, rows), nil
}

func (d *Dataset) readMonthly(name string) ([]MonthlyTemperature, error) {
	rows, err := d.readRows(name, "city", "month", "temperature", "year")
	if err != nil {
		return nil, err
	}

	out := make([]MonthlyTemperature, 0, len(rows))
	for _, row := range rows {
		temp, err := strconv.ParseFloat(row.values["temperature"], 64)
		if err != nil {
			d.logger.Warn("skipping line", zap.String("file", name), zap.Int("line", row.line), zap.Error(err))
			continue
		}
		year, err := strconv.Atoi(row.values["year"])
		if err != nil {
			d.logger.Warn("skipping line", zap.String("file", name), zap.Int("line", row.line), zap.Error(err))
			continue
		}
		out = append(out, MonthlyTemperature{
			City:        row.values["city"],
			Month:       row.values["month"],
			Temperature: temp,
			Year:        year,
		})
	}
	return out, nil
}

type csvRow struct {
	line   int
	values map[string]string
}

// readRows reads a headed CSV file and returns the wanted columns of
// every well-formed line. Malformed lines are logged and skipped.
func (d *Dataset) readRows(name string, columns ...string) ([]csvRow, error) {
	path := filepath.Join(d.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var rows []csvRow
	line := 1
	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			d.logger.Warn("error while reading line", zap.String("file", name), zap.Int("line", line), zap.Error(err))
			continue
		}

		values := make(map[string]string, len(columns))
		for _, col := range columns {
			values[col] = strings.TrimSpace(record[index[col]])
		}
		rows = append(rows, csvRow{line: line, values: values})
	}
	return rows, nil
}
