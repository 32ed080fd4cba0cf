// Package orbit propagates the reference two-line element sets of GNSS
// satellites to a geodetic sub-satellite position.
package orbit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/metrics"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Propagate() takes Satellite by value so SGP4 error codes are not visible to
// the caller. Failures are detected from NaN/Inf output and from position
// magnitudes outside the band GNSS orbits occupy.

// ErrNoElements is returned for satellites without a two-line element set.
var ErrNoElements = errors.New("no orbital elements")

// Radius bounds (km) spanning GLONASS MEO through GEO/IGSO.
const (
	minRadiusKm = 20000.0
	maxRadiusKm = 50000.0
)

// Position is a satellite's geodetic location at an instant.
type Position struct {
	SatelliteID string     `json:"satellite_id"`
	Time        time.Time  `json:"time"`
	Latitude    float64    `json:"latitude"`  // degrees
	Longitude   float64    `json:"longitude"` // degrees, [-180, 180]
	AltitudeKm  float64    `json:"altitude_km"`
	RadiusKm    float64    `json:"radius_km"`
	SpeedKmS    float64    `json:"speed_km_s"`
	ECEF        [3]float64 `json:"ecef_km"`
}

// Propagator wraps go-satellite for a single satellite.
type Propagator struct {
	sat satellite.Satellite
	id  string
}

// NewPropagator creates an SGP4 propagator from TLE lines.
//
// TLE lines are validated first because go-satellite calls log.Fatal on
// malformed input.
func NewPropagator(id, line1, line2 string) (*Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for %s: %w", id, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for %s: code=%d %s", id, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, id: id}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("catalog number mismatch %q vs %q", line1[2:7], line2[2:7])
	}
	return nil
}

// At propagates to t (converted to UTC).
func (p *Propagator) At(t time.Time) (Position, error) {
	t = t.UTC()
	y, mo, d := t.Date()
	h, mi, s := t.Clock()

	pos, vel := satellite.Propagate(p.sat, y, int(mo), d, h, mi, s)
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return Position{}, fmt.Errorf("sgp4 propagation failed for %s: output is NaN/Inf", p.id)
	}

	radius := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if radius < minRadiusKm || radius > maxRadiusKm {
		return Position{}, fmt.Errorf("sgp4 propagation failed for %s: unreasonable position magnitude %.1f km", p.id, radius)
	}

	gmst := satellite.GSTimeFromDate(y, int(mo), d, h, mi, s)
	alt, _, ll := satellite.ECIToLLA(pos, gmst)
	deg := satellite.LatLongDeg(ll)
	ecef := satellite.ECIToECEF(pos, gmst)

	return Position{
		SatelliteID: p.id,
		Time:        t,
		Latitude:    deg.Latitude,
		Longitude:   wrapLongitude(deg.Longitude),
		AltitudeKm:  alt,
		RadiusKm:    radius,
		SpeedKmS:    math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
		ECEF:        [3]float64{ecef.X, ecef.Y, ecef.Z},
	}, nil
}

// Locate propagates a reference satellite to t.
func Locate(sat gnss.SatelliteRecord, t time.Time) (Position, error) {
	if !sat.HasElements() {
		return Position{}, fmt.Errorf("%w for %s", ErrNoElements, sat.ID)
	}
	p, err := NewPropagator(sat.ID, sat.TLE[0], sat.TLE[1])
	if err != nil {
		metrics.IncOrbitFailures()
		return Position{}, err
	}
	pos, err := p.At(t)
	if err != nil {
		metrics.IncOrbitFailures()
		return Position{}, err
	}
	return pos, nil
}

func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
