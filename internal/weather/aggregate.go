package weather

import "math"

// Summary describes the spread of a series.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Summarize computes min, max and mean of values. An empty input yields a
// zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	var sum float64
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	n := float64(len(values))
	return Summary{
		Count: len(values),
		Min:   minV,
		Max:   maxV,
		Mean:  math.Round(sum/n*100) / 100,
	}
}
