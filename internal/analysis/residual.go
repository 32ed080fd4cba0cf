// Package analysis builds the residual diagnostics: synthetic prediction
// residuals with light heavy-tail contamination, equal-width histograms,
// normal Q-Q pairs and summary statistics.
package analysis

import "github.com/diiviikk5/stellar-v1k/internal/stats"

const (
	// DefaultResidualCount is the sample size used when callers pass none.
	DefaultResidualCount = 500

	residualScale      = 0.25
	contaminationRate  = 0.02
	contaminationRange = 0.4
)

// Residuals draws n residuals: 0.25·N(0,1), plus with probability 0.02 a
// uniform outlier term in [-0.4, 0.4]. n <= 0 yields an empty slice.
func Residuals(src stats.Source, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		v := stats.Gaussian(src, 0, 1) * residualScale
		if stats.Chance(src, contaminationRate) {
			v += stats.Uniform(src, -contaminationRange, contaminationRange)
		}
		out[i] = v
	}
	return out
}
