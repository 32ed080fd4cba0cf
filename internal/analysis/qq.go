package analysis

import (
	"slices"

	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

// QQPoint pairs a theoretical standard normal quantile with an observed value.
type QQPoint struct {
	Theoretical float64 `json:"theoretical"`
	Actual      float64 `json:"actual"`
}

// QQ pairs the sorted residuals with normal quantiles at plotting positions
// (i+0.5)/n. The input slice is left untouched.
func QQ(residuals []float64) []QQPoint {
	sorted := slices.Clone(residuals)
	slices.Sort(sorted)

	n := float64(len(sorted))
	out := make([]QQPoint, len(sorted))
	for i, v := range sorted {
		p := (float64(i) + 0.5) / n
		out[i] = QQPoint{
			Theoretical: stats.NormalQuantile(p),
			Actual:      v,
		}
	}
	return out
}
