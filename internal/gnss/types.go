// Package gnss holds the static reference data of the service: the satellite
// list, per-constellation error characteristics, orbital geometry, the KPI
// baseline table and data-source citations.
package gnss

import (
	"fmt"
	"strings"
)

// Constellation names a GNSS system.
type Constellation string

const (
	GPS     Constellation = "GPS"
	Galileo Constellation = "Galileo"
	GLONASS Constellation = "GLONASS"
	BeiDou  Constellation = "BeiDou"
	NavIC   Constellation = "NavIC"
)

// Constellations lists the supported systems in display order.
var Constellations = []Constellation{GPS, Galileo, GLONASS, BeiDou, NavIC}

// ClockType is the on-board frequency standard.
type ClockType string

const (
	ClockRb  ClockType = "Rb"
	ClockCs  ClockType = "Cs"
	ClockPHM ClockType = "PHM"
)

// Factor scales a constellation's clock RMS for this frequency standard.
// Unknown types scale by 1.
func (c ClockType) Factor() float64 {
	switch c {
	case ClockCs:
		return 1.3
	case ClockPHM:
		return 0.7
	default:
		return 1.0
	}
}

// Status is the operational health flag of a satellite.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusFlagged Status = "flagged"
)

// OrbitClass is the orbit regime of a satellite.
type OrbitClass string

const (
	OrbitMEO  OrbitClass = "MEO"
	OrbitGEO  OrbitClass = "GEO"
	OrbitIGSO OrbitClass = "IGSO"
)

// Component selects one error channel of a satellite.
type Component string

const (
	ComponentClock  Component = "clock"
	ComponentRadial Component = "radial"
	ComponentAlong  Component = "along"
	ComponentCross  Component = "cross"
)

// SatelliteRecord is one row of the reference satellite list.
type SatelliteRecord struct {
	ID            string        `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Constellation Constellation `yaml:"constellation" json:"constellation"`
	PRN           int           `yaml:"prn" json:"prn"`
	NORADID       int           `yaml:"norad_id" json:"norad_id"`
	OrbitClass    OrbitClass    `yaml:"orbit_class" json:"orbit_class"`
	Block         string        `yaml:"block" json:"block"`
	ClockType     ClockType     `yaml:"clock_type" json:"clock_type"`
	Status        Status        `yaml:"status" json:"status"`
	TLE           []string      `yaml:"tle" json:"-"`
}

// HasElements reports whether the record carries a two-line element set.
func (s SatelliteRecord) HasElements() bool {
	return len(s.TLE) == 2
}

// ErrorCharacteristics is the broadcast error budget of a constellation.
// Clock values are nanoseconds, orbit values metres.
type ErrorCharacteristics struct {
	BroadcastClockRMS float64 `yaml:"broadcast_clock_rms" json:"broadcast_clock_rms"`
	OrbitRadialRMS    float64 `yaml:"orbit_radial_rms" json:"orbit_radial_rms"`
	OrbitAlongRMS     float64 `yaml:"orbit_along_rms" json:"orbit_along_rms"`
	OrbitCrossRMS     float64 `yaml:"orbit_cross_rms" json:"orbit_cross_rms"`
	MaxClockError     float64 `yaml:"max_clock_error" json:"max_clock_error"`
	MaxOrbitError     float64 `yaml:"max_orbit_error" json:"max_orbit_error"`
}

// BaseRMS returns the RMS of the given component; unknown components map to
// the clock RMS.
func (e ErrorCharacteristics) BaseRMS(c Component) float64 {
	switch c {
	case ComponentRadial:
		return e.OrbitRadialRMS
	case ComponentAlong:
		return e.OrbitAlongRMS
	case ComponentCross:
		return e.OrbitCrossRMS
	default:
		return e.BroadcastClockRMS
	}
}

// Bound returns the clamp applied to samples of the given component.
func (e ErrorCharacteristics) Bound(c Component) float64 {
	if c == ComponentClock || c == "" {
		return e.MaxClockError
	}
	return e.MaxOrbitError
}

// OrbitalParameters describes the nominal geometry of a constellation.
type OrbitalParameters struct {
	Constellation     Constellation `yaml:"-" json:"constellation"`
	AltitudeKm        float64       `yaml:"altitude_km" json:"altitude_km"`
	InclinationDeg    float64       `yaml:"inclination_deg" json:"inclination_deg"`
	PeriodHours       float64       `yaml:"period_hours" json:"period_hours"`
	Planes            int           `yaml:"planes" json:"planes"`
	NominalSatellites int           `yaml:"nominal_satellites" json:"nominal_satellites"`
	Operator          string        `yaml:"operator" json:"operator"`
}

// KPIBaseline compares broadcast and forecast RMS at one horizon.
type KPIBaseline struct {
	Horizon          string  `yaml:"horizon" json:"horizon"`
	BaselineClockRMS float64 `yaml:"baseline_clock_rms" json:"baseline_clock_rms"`
	ForecastClockRMS float64 `yaml:"forecast_clock_rms" json:"forecast_clock_rms"`
	BaselineOrbitRMS float64 `yaml:"baseline_orbit_rms" json:"baseline_orbit_rms"`
	ForecastOrbitRMS float64 `yaml:"forecast_orbit_rms" json:"forecast_orbit_rms"`
}

// DataSource cites an external product the reference tables are modelled on.
type DataSource struct {
	Name        string `yaml:"name" json:"name"`
	Provider    string `yaml:"provider" json:"provider"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
}

// ParseConstellation resolves a case-insensitive constellation name.
func ParseConstellation(name string) (Constellation, error) {
	for _, c := range Constellations {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown constellation %q", name)
}
