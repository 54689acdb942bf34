// Package chart draws the temperature line charts shown on the DES screens.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/fogleman/gg"

	"github.com/i474232898/weather-des/internal/weather"
)

type Marker int

const (
	MarkerNone Marker = iota
	MarkerCircle
	MarkerSquare
)

var (
	NZColor       = color.RGBA{R: 0x21, G: 0x96, B: 0xF3, A: 0xFF}
	CanadianColor = color.RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}
	exampleColor  = color.RGBA{R: 0x9E, G: 0x9E, B: 0x9E, A: 0xFF}
)

// ExampleValues fill a monthly chart before any data has been loaded.
var ExampleValues = []float64{15, 17, 14, 12, 10, 8, 7, 9, 11, 13, 14, 15}

// Line is one plotted series.
type Line struct {
	Name   string
	Values []float64
	Color  color.Color
	Marker Marker
}

// Chart is everything needed to render one figure.
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Labels []string
	Lines  []Line
	Legend bool
}

// Current builds the Current Condition chart. nz and ca may be nil.
func Current(nz, ca *weather.Series) Chart {
	c := Chart{
		Title:  "24-Hour Temperature Forecast",
		XLabel: "Time",
		YLabel: "Temperature (°C)",
	}
	switch {
	case nz != nil && ca != nil:
		c.Title = fmt.Sprintf("Temperature Comparison: %s vs %s", nz.City, ca.City)
	case nz != nil:
		c.Title = "Temperature Forecast for " + nz.City
	}
	c.addSeries(nz, ca)
	for i, l := range c.Labels {
		if t, err := time.Parse(weather.TimestampLayout, l); err == nil {
			c.Labels[i] = t.Format("15:04")
		}
	}
	return c
}

// Historical builds the Historical Data chart. nz and ca may be nil.
func Historical(nz, ca *weather.Series) Chart {
	c := Chart{
		Title:  "Temperature History",
		XLabel: "Month",
		YLabel: "Temperature (°C)",
	}
	switch {
	case nz != nil && ca != nil:
		c.Title = fmt.Sprintf("Temperature Comparison: %s vs %s", nz.City, ca.City)
	case nz != nil:
		c.Title = "Temperature History for " + nz.City
	}
	c.addSeries(nz, ca)
	c.exampleIfEmpty()
	return c
}

// Yearly builds the Yearly Comparison chart. nz and ca may be nil.
func Yearly(nz, ca *weather.Series) Chart {
	c := Chart{
		Title:  "Temperature Comparison",
		XLabel: "Month",
		YLabel: "Temperature (°C)",
	}
	if nz != nil && ca != nil {
		c.Title = fmt.Sprintf("Temperature Comparison: %s vs %s", nz.City, ca.City)
	}
	c.addSeries(nz, ca)
	c.exampleIfEmpty()
	return c
}

// addSeries plots point i of every series above label i. The label axis
// is extended to the longest series.
func (c *Chart) addSeries(nz, ca *weather.Series) {
	if nz != nil && len(nz.Values) > 0 {
		c.extendLabels(nz.Labels)
		c.Lines = append(c.Lines, Line{Name: nz.City, Values: nz.Values, Color: NZColor, Marker: MarkerCircle})
	}
	if ca != nil && len(ca.Values) > 0 {
		c.extendLabels(ca.Labels)
		c.Lines = append(c.Lines, Line{Name: ca.City, Values: ca.Values, Color: CanadianColor, Marker: MarkerSquare})
	}
	c.Legend = len(c.Lines) > 0
}

func (c *Chart) extendLabels(labels []string) {
	if len(labels) > len(c.Labels) {
		c.Labels = append(c.Labels, labels[len(c.Labels):]...)
	}
}

func (c *Chart) exampleIfEmpty() {
	if len(c.Lines) > 0 {
		return
	}
	c.Labels = append([]string(nil), weather.Months...)
	c.Lines = []Line{{Name: "Example Data", Values: ExampleValues, Color: exampleColor, Marker: MarkerCircle}}
	c.Legend = true
}

const (
	marginLeft   = 70.0
	marginRight  = 30.0
	marginTop    = 50.0
	marginBottom = 60.0
	gridLines    = 5
)

// plotArea maps label positions and temperatures to pixels.
type plotArea struct {
	left, top     float64
	width, height float64
	lo, hi        float64
	points        int
}

func newPlotArea(c Chart, width, height int) plotArea {
	lo, hi := valueRange(c.Lines)
	points := len(c.Labels)
	for _, l := range c.Lines {
		points = max(points, len(l.Values))
	}
	return plotArea{
		left:   marginLeft,
		top:    marginTop,
		width:  float64(width) - marginLeft - marginRight,
		height: float64(height) - marginTop - marginBottom,
		lo:     lo,
		hi:     hi,
		points: points,
	}
}

// x is the horizontal position of label i.
func (p plotArea) x(i int) float64 {
	if p.points <= 1 {
		return p.left + p.width/2
	}
	return p.left + p.width*float64(i)/float64(p.points-1)
}

func (p plotArea) y(v float64) float64 {
	return p.top + p.height*(p.hi-v)/(p.hi-p.lo)
}

// RenderPNG draws c and writes it to w as a PNG.
func RenderPNG(w io.Writer, c Chart, width, height int) error {
	if width <= int(marginLeft+marginRight) || height <= int(marginTop+marginBottom) {
		return fmt.Errorf("chart size %dx%d is too small", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	p := newPlotArea(c, width, height)

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(c.Title, float64(width)/2, marginTop/2, 0.5, 0.5)

	// grid
	dc.SetRGBA(0, 0, 0, 0.2)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	for i := 0; i <= gridLines; i++ {
		y := p.top + p.height*float64(i)/gridLines
		dc.DrawLine(p.left, y, p.left+p.width, y)
		dc.Stroke()
	}
	for i := range c.Labels {
		dc.DrawLine(p.x(i), p.top, p.x(i), p.top+p.height)
		dc.Stroke()
	}
	dc.SetDash()

	dc.SetColor(color.Black)
	dc.DrawRectangle(p.left, p.top, p.width, p.height)
	dc.Stroke()

	for i := 0; i <= gridLines; i++ {
		v := p.hi - (p.hi-p.lo)*float64(i)/gridLines
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), p.left-6, p.y(v), 1, 0.5)
	}
	for i, l := range c.Labels {
		dc.DrawStringAnchored(l, p.x(i), p.top+p.height+14, 0.5, 0.5)
	}
	dc.DrawStringAnchored(c.XLabel, p.left+p.width/2, float64(height)-18, 0.5, 0.5)

	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 16, p.top+p.height/2)
	dc.DrawStringAnchored(c.YLabel, 16, p.top+p.height/2, 0.5, 0.5)
	dc.Pop()

	for _, line := range c.Lines {
		drawLine(dc, line, p)
	}

	if c.Legend {
		drawLegend(dc, c.Lines, p.left+p.width-10, p.top+10)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func drawLine(dc *gg.Context, line Line, p plotArea) {
	dc.SetColor(line.Color)
	dc.SetLineWidth(2)
	for i, v := range line.Values {
		if i == 0 {
			dc.MoveTo(p.x(i), p.y(v))
			continue
		}
		dc.LineTo(p.x(i), p.y(v))
	}
	dc.Stroke()

	for i, v := range line.Values {
		drawMarker(dc, line.Marker, p.x(i), p.y(v))
	}
}

func drawMarker(dc *gg.Context, m Marker, x, y float64) {
	switch m {
	case MarkerCircle:
		dc.DrawCircle(x, y, 4)
		dc.Fill()
	case MarkerSquare:
		dc.DrawRectangle(x-4, y-4, 8, 8)
		dc.Fill()
	}
}

func drawLegend(dc *gg.Context, lines []Line, right, top float64) {
	width := 0.0
	for _, l := range lines {
		w, _ := dc.MeasureString(l.Name)
		width = math.Max(width, w)
	}
	width += 40
	height := float64(len(lines))*18 + 8
	left := right - width

	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(left, top, width, height)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.4)
	dc.SetLineWidth(1)
	dc.DrawRectangle(left, top, width, height)
	dc.Stroke()

	for i, l := range lines {
		y := top + 13 + float64(i)*18
		dc.SetColor(l.Color)
		dc.SetLineWidth(2)
		dc.DrawLine(left+6, y, left+26, y)
		dc.Stroke()
		drawMarker(dc, l.Marker, left+16, y)
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(l.Name, left+32, y, 0, 0.5)
	}
}

func valueRange(lines []Line) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, v := range l.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return math.Floor(lo - pad), math.Ceil(hi + pad)
}
