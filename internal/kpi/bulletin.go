package kpi

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

// Risk classifies a bulletin entry by its uncertainty.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

const (
	highRiskThreshold   = 0.8
	mediumRiskThreshold = 0.4
)

// ClassifyRisk maps an uncertainty to HIGH (> 0.8), MEDIUM (> 0.4) or LOW.
func ClassifyRisk(uncertainty float64) Risk {
	switch {
	case uncertainty > highRiskThreshold:
		return RiskHigh
	case uncertainty > mediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (r Risk) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Horizon is one bulletin lead time.
type Horizon struct {
	Label    string
	Duration time.Duration
}

// Horizons are the lead times every bulletin covers.
var Horizons = []Horizon{
	{"15m", 15 * time.Minute},
	{"30m", 30 * time.Minute},
	{"1h", time.Hour},
	{"2h", 2 * time.Hour},
	{"6h", 6 * time.Hour},
	{"24h", 24 * time.Hour},
}

// HorizonForecast is a bulletin entry at one lead time.
type HorizonForecast struct {
	Horizon      string    `json:"horizon"`
	HorizonHours float64   `json:"horizon_hours"`
	ValidAt      time.Time `json:"valid_at"`
	ClockErrorNs float64   `json:"clock_error_ns"`
	RadialErrorM float64   `json:"radial_error_m"`
	Uncertainty  float64   `json:"uncertainty"`
	Risk         Risk      `json:"risk"`
}

// Bulletin is the forecast bulletin for one satellite.
type Bulletin struct {
	ID            string             `json:"id"`
	IssuedAt      time.Time          `json:"issued_at"`
	SatelliteID   string             `json:"satellite_id"`
	Name          string             `json:"name"`
	Constellation gnss.Constellation `json:"constellation"`
	ClockType     gnss.ClockType     `json:"clock_type"`
	Status        gnss.Status        `json:"status"`
	MaxRisk       Risk               `json:"max_risk"`
	Forecasts     []HorizonForecast  `json:"forecasts"`
}

const (
	bulletinClockScale  = 0.05
	bulletinClockGrowth = 0.25
	bulletinOrbitScale  = 0.1
	bulletinOrbitGrowth = 0.1
	bulletinJitter      = 0.02
)

// statusFactor inflates uncertainty for satellites that are not healthy.
func statusFactor(s gnss.Status) float64 {
	switch s {
	case gnss.StatusHealthy:
		return 1.0
	case gnss.StatusWarning:
		return 1.2
	default:
		return 1.5
	}
}

// BulletinUncertainty is the deterministic part of an entry's uncertainty (ns).
func BulletinUncertainty(sat gnss.SatelliteRecord, horizonHours float64) float64 {
	e := gnss.Characteristics(string(sat.Constellation))
	return bulletinClockScale * e.BroadcastClockRMS * sat.ClockType.Factor() *
		(1 + bulletinClockGrowth*horizonHours) * statusFactor(sat.Status)
}

// Bulletins issues one bulletin per reference satellite.
func Bulletins(src stats.Source, now time.Time) []Bulletin {
	now = now.UTC()
	sats := gnss.Satellites()
	out := make([]Bulletin, 0, len(sats))

	for _, sat := range sats {
		b := Bulletin{
			ID:            uuid.NewString(),
			IssuedAt:      now,
			SatelliteID:   sat.ID,
			Name:          sat.Name,
			Constellation: sat.Constellation,
			ClockType:     sat.ClockType,
			Status:        sat.Status,
			MaxRisk:       RiskLow,
			Forecasts:     make([]HorizonForecast, 0, len(Horizons)),
		}

		for _, h := range Horizons {
			hours := h.Duration.Hours()
			u := BulletinUncertainty(sat, hours) + math.Abs(stats.Gaussian(src, 0, bulletinJitter))
			clockScale := bulletinClockScale * (1 + bulletinClockGrowth*hours)
			orbitScale := bulletinOrbitScale * (1 + bulletinOrbitGrowth*hours)

			f := HorizonForecast{
				Horizon:      h.Label,
				HorizonHours: hours,
				ValidAt:      now.Add(h.Duration),
				ClockErrorNs: gnss.ClockError(src, sat.Constellation, sat.ClockType) * clockScale,
				RadialErrorM: gnss.OrbitError(src, sat.Constellation, gnss.ComponentRadial) * orbitScale,
				Uncertainty:  u,
				Risk:         ClassifyRisk(u),
			}
			if f.Risk.rank() > b.MaxRisk.rank() {
				b.MaxRisk = f.Risk
			}
			b.Forecasts = append(b.Forecasts, f)
		}
		out = append(out, b)
	}
	return out
}

// RiskCounts tallies bulletin entries across all horizons by risk level.
func RiskCounts(bulletins []Bulletin) map[Risk]int {
	counts := map[Risk]int{RiskLow: 0, RiskMedium: 0, RiskHigh: 0}
	for _, b := range bulletins {
		for _, f := range b.Forecasts {
			counts[f.Risk]++
		}
	}
	return counts
}
