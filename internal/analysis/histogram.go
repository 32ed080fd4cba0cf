package analysis

import "math"

// DefaultBins is the bin count used when callers pass none.
const DefaultBins = 30

// Bin is one equal-width histogram interval [X0, X1).
// The last bin is closed on the right.
type Bin struct {
	X0    float64 `json:"x0"`
	X1    float64 `json:"x1"`
	Count int     `json:"count"`
}

// Histogram partitions [min, max] of data into bins equal-width intervals.
// bins <= 0 selects DefaultBins. Empty data yields no bins; a constant sample
// yields a single bin holding every point.
func Histogram(data []float64, bins int) []Bin {
	if len(data) == 0 {
		return []Bin{}
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	width := (hi - lo) / float64(bins)
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return []Bin{{X0: lo, X1: hi, Count: len(data)}}
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i].X0 = lo + float64(i)*width
		out[i].X1 = lo + float64(i+1)*width
	}
	out[bins-1].X1 = hi

	for _, v := range data {
		idx := int(math.Floor((v - lo) / width))
		if idx < 0 {
			idx = 0
		} else if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
