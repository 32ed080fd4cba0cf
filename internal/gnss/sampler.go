package gnss

import (
	"math"

	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

// ClockError draws one broadcast clock error (ns) for a satellite of the given
// constellation and clock type, clamped to the constellation's bound.
func ClockError(src stats.Source, c Constellation, ct ClockType) float64 {
	e := Characteristics(string(c))
	v := stats.Gaussian(src, 0, e.BroadcastClockRMS*ct.Factor())
	return clamp(v, e.MaxClockError)
}

// OrbitError draws one broadcast orbit error (m) along the given component,
// clamped to the constellation's bound. ComponentClock falls through to
// ClockError with a rubidium standard.
func OrbitError(src stats.Source, c Constellation, comp Component) float64 {
	if comp == ComponentClock {
		return ClockError(src, c, ClockRb)
	}
	e := Characteristics(string(c))
	v := stats.Gaussian(src, 0, e.BaseRMS(comp))
	return clamp(v, e.MaxOrbitError)
}

func clamp(v, bound float64) float64 {
	if bound <= 0 {
		return v
	}
	return math.Max(-bound, math.Min(bound, v))
}
