package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
)

// Signal selects which error channel a forecast models.
type Signal string

const (
	SignalClock  Signal = "clock"
	SignalRadial Signal = "radial"
	SignalAlong  Signal = "along"
	SignalCross  Signal = "cross"
)

// ParseSignal resolves a signal selector. The empty string selects clock.
func ParseSignal(s string) (Signal, error) {
	switch sig := Signal(strings.ToLower(strings.TrimSpace(s))); sig {
	case "":
		return SignalClock, nil
	case SignalClock, SignalRadial, SignalAlong, SignalCross:
		return sig, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
	}
}

// Component maps the signal onto the reference error component.
func (s Signal) Component() gnss.Component {
	switch s {
	case SignalRadial:
		return gnss.ComponentRadial
	case SignalAlong:
		return gnss.ComponentAlong
	case SignalCross:
		return gnss.ComponentCross
	default:
		return gnss.ComponentClock
	}
}

// GrowthRate is the uncertainty added per forecast hour.
func (s Signal) GrowthRate() float64 {
	if s.Component() == gnss.ComponentClock {
		return clockGrowthRate
	}
	return orbitGrowthRate
}

// PointType distinguishes observed history from forecast output.
type PointType string

const (
	PointHistorical PointType = "historical"
	PointForecast   PointType = "forecast"
)

// Bands are the symmetric confidence bounds around a forecast value.
// Upper/Lower are the 95% (1.96σ) band.
type Bands struct {
	Upper       float64 `json:"upper"`
	Lower       float64 `json:"lower"`
	Upper1Sigma float64 `json:"upper_1sigma"`
	Lower1Sigma float64 `json:"lower_1sigma"`
	Upper2Sigma float64 `json:"upper_2sigma"`
	Lower2Sigma float64 `json:"lower_2sigma"`
}

// Point is one sample of a series.
type Point struct {
	Timestamp    string    `json:"timestamp"`
	Epoch        int64     `json:"epoch"` // unix milliseconds
	Value        float64   `json:"value"`
	Type         PointType `json:"type"`
	HorizonHours float64   `json:"horizon_hours,omitempty"`
	Uncertainty  float64   `json:"uncertainty,omitempty"`
	Bands        *Bands    `json:"bands,omitempty"`
}

// Time parses the point's epoch back into a UTC time.
func (p Point) Time() time.Time {
	return time.UnixMilli(p.Epoch).UTC()
}

// Result is one independent realization of a satellite's history and forecast.
type Result struct {
	SatelliteID   string             `json:"satellite_id"`
	Constellation gnss.Constellation `json:"constellation"`
	Signal        Signal             `json:"signal"`
	BaseRMS       float64            `json:"base_rms"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Past          []Point            `json:"past"`
	Forecast      []Point            `json:"forecast"`
	Current       float64            `json:"current"`
}
