package chart

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-des/internal/weather"
)

func series(city string, labels []string, values ...float64) *weather.Series {
	return &weather.Series{City: city, Labels: labels, Values: values}
}

func TestTitles(t *testing.T) {
	nz := series("Nelson", []string{"Jan", "Feb"}, 18.5, 19)
	ca := series("Toronto", []string{"Jan", "Feb"}, -6.1, -5.5)

	tests := []struct {
		name string
		got  Chart
		want string
	}{
		{"current empty", Current(nil, nil), "24-Hour Temperature Forecast"},
		{"current single", Current(nz, nil), "Temperature Forecast for Nelson"},
		{"current compare", Current(nz, ca), "Temperature Comparison: Nelson vs Toronto"},
		{"historical empty", Historical(nil, nil), "Temperature History"},
		{"historical single", Historical(nz, nil), "Temperature History for Nelson"},
		{"historical compare", Historical(nz, ca), "Temperature Comparison: Nelson vs Toronto"},
		{"yearly empty", Yearly(nil, nil), "Temperature Comparison"},
		{"yearly compare", Yearly(nz, ca), "Temperature Comparison: Nelson vs Toronto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.Title)
		})
	}
}

func TestMonthlyChartsFallBackToExampleData(t *testing.T) {
	c := Historical(nil, nil)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "Example Data", c.Lines[0].Name)
	assert.Equal(t, ExampleValues, c.Lines[0].Values)
	assert.Len(t, c.Labels, 12)

	// The current chart has no placeholder series.
	assert.Empty(t, Current(nil, nil).Lines)
	assert.False(t, Current(nil, nil).Legend)
}

func TestSeriesStyling(t *testing.T) {
	c := Yearly(
		series("Nelson", []string{"Jan"}, 18.5),
		series("Toronto", []string{"Jan"}, -6.1),
	)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, NZColor, c.Lines[0].Color)
	assert.Equal(t, MarkerCircle, c.Lines[0].Marker)
	assert.Equal(t, CanadianColor, c.Lines[1].Color)
	assert.Equal(t, MarkerSquare, c.Lines[1].Marker)
	assert.True(t, c.Legend)
}

func TestCurrentShortensTimestamps(t *testing.T) {
	c := Current(series("Nelson", []string{"2024-11-10 03:00:00", "2024-11-10 06:00:00"}, 10, 11), nil)
	assert.Equal(t, []string{"03:00", "06:00"}, c.Labels)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	c := Historical(series("Nelson", []string{"Jan", "Feb", "Mar"}, 18.5, 19, 17.1), nil)
	require.NoError(t, RenderPNG(&buf, c, 800, 500))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())

	assert.Error(t, RenderPNG(&bytes.Buffer{}, c, 50, 50))
}

func TestUnequalSeriesShareLabelAxis(t *testing.T) {
	nzValues := []float64{18.5, 19, 17.1, 15, 12.4, 10.2, 9.6, 10.1, 11.8, 13.5, 15.2, 17.3}
	nz := series("Nelson", weather.Months, nzValues...)
	ca := series("Toronto", []string{"Jan", "Feb"}, -6.1, -5.5)

	c := Historical(nz, ca)
	assert.Len(t, c.Labels, 12)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, c, 800, 500))
	img, err := png.Decode(&buf)
	require.NoError(t, err)

	p := newPlotArea(c, 800, 500)
	colorAt := func(x, y float64) color.RGBA {
		return color.RGBAModel.Convert(img.At(int(x), int(y))).(color.RGBA)
	}

	// Toronto's February point sits above the "Feb" label.
	assert.Equal(t, CanadianColor, colorAt(p.x(1), p.y(-5.5)))
	assert.NotEqual(t, CanadianColor, colorAt(p.x(11), p.y(-5.5)))
}

func TestLongerCanadianSeriesExtendsLabels(t *testing.T) {
	nz := series("Nelson", []string{"2024-11-10 00:00:00", "2024-11-10 03:00:00"}, 10, 11)
	ca := series("Toronto", []string{"2024-11-10 00:00:00", "2024-11-10 03:00:00", "2024-11-10 06:00:00"}, 3, 2, 1)

	c := Current(nz, ca)
	assert.Equal(t, []string{"00:00", "03:00", "06:00"}, c.Labels)
}
