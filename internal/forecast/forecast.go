// Package forecast synthesizes satellite error time series: a mean-reverting
// random walk for the last 24 hours followed by a 24-hour forecast whose
// uncertainty widens linearly with horizon.
package forecast

import (
	"errors"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

// ErrUnknownSignal is returned by ParseSignal for unsupported selectors.
var ErrUnknownSignal = errors.New("unknown signal")

const (
	HistoryPoints  = 96
	ForecastPoints = 96
	Step           = 15 * time.Minute

	seedScale        = 0.5
	historyNoise     = 0.05
	meanReversion    = 0.01
	forecastNoise    = 0.03
	forecastTrend    = 0.001
	uncertaintyFloor = 0.2

	clockGrowthRate = 0.15
	orbitGrowthRate = 0.08

	z95 = 1.96
)

// isoMillis is ISO-8601 with millisecond precision in UTC.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Generator produces forecast realizations. Safe for concurrent use when its
// source is.
type Generator struct {
	src stats.Source
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock used as "now".
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator drawing from src; nil selects stats.Default().
func New(src stats.Source, opts ...Option) *Generator {
	if src == nil {
		src = stats.Default()
	}
	g := &Generator{src: src, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Uncertainty returns the 1σ forecast uncertainty at the given horizon.
func Uncertainty(baseRMS, horizonHours float64, signal Signal) float64 {
	return uncertaintyFloor*baseRMS + horizonHours*signal.GrowthRate()
}

// Generate builds one realization for the satellite. Unknown satellite IDs
// resolve to the first reference satellite; an empty signal selects clock.
func (g *Generator) Generate(satelliteID string, signal Signal) Result {
	if signal == "" {
		signal = SignalClock
	}
	sat := gnss.ResolveSatellite(satelliteID)
	base := gnss.Characteristics(string(sat.Constellation)).BaseRMS(signal.Component())
	now := g.now().UTC()

	value := stats.Gaussian(g.src, 0, seedScale*base)

	past := make([]Point, 0, HistoryPoints)
	for i := HistoryPoints - 1; i >= 0; i-- {
		value += stats.Gaussian(g.src, 0, historyNoise*base) - meanReversion*value
		ts := now.Add(-time.Duration(i) * Step)
		past = append(past, Point{
			Timestamp: ts.Format(isoMillis),
			Epoch:     ts.UnixMilli(),
			Value:     value,
			Type:      PointHistorical,
		})
	}
	current := value

	fc := make([]Point, 0, ForecastPoints)
	for i := 1; i <= ForecastPoints; i++ {
		value += stats.Gaussian(g.src, forecastTrend*value, forecastNoise*base)
		ts := now.Add(time.Duration(i) * Step)
		horizon := ts.Sub(now).Hours()
		sigma := Uncertainty(base, horizon, signal)
		fc = append(fc, Point{
			Timestamp:    ts.Format(isoMillis),
			Epoch:        ts.UnixMilli(),
			Value:        value,
			Type:         PointForecast,
			HorizonHours: horizon,
			Uncertainty:  sigma,
			Bands: &Bands{
				Upper:       value + z95*sigma,
				Lower:       value - z95*sigma,
				Upper1Sigma: value + sigma,
				Lower1Sigma: value - sigma,
				Upper2Sigma: value + 2*sigma,
				Lower2Sigma: value - 2*sigma,
			},
		})
	}

	return Result{
		SatelliteID:   sat.ID,
		Constellation: sat.Constellation,
		Signal:        signal,
		BaseRMS:       base,
		GeneratedAt:   now,
		Past:          past,
		Forecast:      fc,
		Current:       current,
	}
}
