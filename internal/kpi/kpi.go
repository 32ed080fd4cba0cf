// Package kpi composes the reference tables and error samplers into the
// dashboard aggregates: headline accuracy figures, fleet status counts and
// per-satellite forecast bulletins.
package kpi

import (
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

// Accuracy is a headline forecast accuracy figure at one horizon.
type Accuracy struct {
	Horizon    string  `json:"horizon"`
	ClockRMSNs float64 `json:"clock_rms_ns"`
	OrbitRMSM  float64 `json:"orbit_rms_m"`
}

// StatusCounts tallies satellites by health flag.
type StatusCounts struct {
	Healthy int `json:"healthy"`
	Warning int `json:"warning"`
	Flagged int `json:"flagged"`
}

// Total is the number of satellites counted.
func (s StatusCounts) Total() int {
	return s.Healthy + s.Warning + s.Flagged
}

// ConstellationCount is the number of reference satellites of one system.
type ConstellationCount struct {
	Constellation gnss.Constellation `json:"constellation"`
	Satellites    int                `json:"satellites"`
}

// Improvement compares forecast against broadcast RMS at one horizon.
type Improvement struct {
	gnss.KPIBaseline
	ClockImprovementPct float64 `json:"clock_improvement_pct"`
	OrbitImprovementPct float64 `json:"orbit_improvement_pct"`
}

// Metrics is the dashboard KPI aggregate. Recomputed on every call.
type Metrics struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	NearTerm        Accuracy             `json:"near_term"`
	LongHorizon     Accuracy             `json:"long_horizon"`
	ModelConfidence float64              `json:"model_confidence"`
	TotalSatellites int                  `json:"total_satellites"`
	Status          StatusCounts         `json:"status"`
	Constellations  []ConstellationCount `json:"constellations"`
	Improvements    []Improvement        `json:"improvements"`
}

// Ranges the headline figures are drawn from.
var (
	nearClockRange  = [2]float64{0.18, 0.32}
	nearOrbitRange  = [2]float64{0.25, 0.45}
	longClockRange  = [2]float64{1.60, 2.20}
	longOrbitRange  = [2]float64{1.50, 2.10}
	confidenceRange = [2]float64{0.92, 0.98}
)

// Compute builds the KPI aggregate from the reference tables.
func Compute(src stats.Source, now time.Time) Metrics {
	sats := gnss.Satellites()

	m := Metrics{
		GeneratedAt: now.UTC(),
		NearTerm: Accuracy{
			Horizon:    "15m",
			ClockRMSNs: draw(src, nearClockRange),
			OrbitRMSM:  draw(src, nearOrbitRange),
		},
		LongHorizon: Accuracy{
			Horizon:    "24h",
			ClockRMSNs: draw(src, longClockRange),
			OrbitRMSM:  draw(src, longOrbitRange),
		},
		ModelConfidence: draw(src, confidenceRange),
		TotalSatellites: len(sats),
		Status:          CountStatus(sats),
		Constellations:  countConstellations(sats),
	}

	for _, b := range gnss.KPIBaselines() {
		m.Improvements = append(m.Improvements, Improvement{
			KPIBaseline:         b,
			ClockImprovementPct: improvement(b.BaselineClockRMS, b.ForecastClockRMS),
			OrbitImprovementPct: improvement(b.BaselineOrbitRMS, b.ForecastOrbitRMS),
		})
	}
	return m
}

// CountStatus tallies sats by health flag. Unrecognized flags count as
// flagged so the tallies always sum to len(sats).
func CountStatus(sats []gnss.SatelliteRecord) StatusCounts {
	var c StatusCounts
	for _, s := range sats {
		switch s.Status {
		case gnss.StatusHealthy:
			c.Healthy++
		case gnss.StatusWarning:
			c.Warning++
		default:
			c.Flagged++
		}
	}
	return c
}

func countConstellations(sats []gnss.SatelliteRecord) []ConstellationCount {
	counts := make(map[gnss.Constellation]int, len(gnss.Constellations))
	for _, s := range sats {
		counts[s.Constellation]++
	}
	out := make([]ConstellationCount, 0, len(gnss.Constellations))
	for _, c := range gnss.Constellations {
		out = append(out, ConstellationCount{Constellation: c, Satellites: counts[c]})
	}
	return out
}

func improvement(baseline, forecast float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (baseline - forecast) / baseline * 100
}

func draw(src stats.Source, r [2]float64) float64 {
	return stats.Uniform(src, r[0], r[1])
}
