package analysis

import (
	"math"
	"slices"
)

// Summary describes a residual sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	RMS    float64 `json:"rms"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P95Abs float64 `json:"p95_abs"`
}

// Summarize computes population statistics of data. Empty data yields a
// zero Summary.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}

	n := float64(len(data))
	s := Summary{Count: len(data), Min: data[0], Max: data[0]}
	var sum, sumSq float64
	abs := make([]float64, len(data))
	for i, v := range data {
		sum += v
		sumSq += v * v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		abs[i] = math.Abs(v)
	}
	s.Mean = sum / n
	s.RMS = math.Sqrt(sumSq / n)

	var dev float64
	for _, v := range data {
		d := v - s.Mean
		dev += d * d
	}
	s.Std = math.Sqrt(dev / n)

	slices.Sort(abs)
	idx := int(math.Ceil(0.95*n)) - 1
	if idx < 0 {
		idx = 0
	}
	s.P95Abs = abs[idx]
	return s
}
