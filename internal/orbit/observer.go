package orbit

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid, kilometres.
const (
	wgs84AKm = 6378.137
	wgs84F   = 1.0 / 298.257223563
	wgs84E2  = wgs84F * (2 - wgs84F)
)

// Observer is a ground receiver. ECEF is precomputed once so the same
// observer can be reused across satellites.
type Observer struct {
	Latitude  float64 `json:"latitude"`  // degrees
	Longitude float64 `json:"longitude"` // degrees
	AltitudeM float64 `json:"altitude_m"`

	latRad, lonRad float64
	ecef           [3]float64 // km
}

// NewObserver validates geodetic coordinates and precomputes ECEF.
func NewObserver(latDeg, lonDeg, altM float64) (Observer, error) {
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return Observer{}, fmt.Errorf("latitude %v out of range [-90, 90]", latDeg)
	}
	if math.IsNaN(lonDeg) || lonDeg < -180 || lonDeg > 180 {
		return Observer{}, fmt.Errorf("longitude %v out of range [-180, 180]", lonDeg)
	}
	if math.IsNaN(altM) || altM < -500 || altM > 10000 {
		return Observer{}, fmt.Errorf("altitude %v m out of range [-500, 10000]", altM)
	}

	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)

	// Prime-vertical radius of curvature.
	n := wgs84AKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	h := altM / 1000

	return Observer{
		Latitude:  latDeg,
		Longitude: lonDeg,
		AltitudeM: altM,
		latRad:    lat,
		lonRad:    lon,
		ecef: [3]float64{
			(n + h) * cosLat * math.Cos(lon),
			(n + h) * cosLat * math.Sin(lon),
			(n*(1-wgs84E2) + h) * sinLat,
		},
	}, nil
}

// LookAngles is the direction from an observer to a satellite.
type LookAngles struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // 0 = North, clockwise
	ElevationDeg float64 `json:"elevation_deg"` // 0 = horizon, 90 = zenith
	RangeKm      float64 `json:"range_km"`
	Visible      bool    `json:"visible"`
}

// MaskAngleDeg is the elevation below which a satellite is not tracked.
const MaskAngleDeg = 5.0

// Look rotates the observer-to-satellite vector into the local
// South-East-Zenith frame.
func (o Observer) Look(pos Position) LookAngles {
	rx := pos.ECEF[0] - o.ecef[0]
	ry := pos.ECEF[1] - o.ecef[1]
	rz := pos.ECEF[2] - o.ecef[2]

	sinLat, cosLat := math.Sin(o.latRad), math.Cos(o.latRad)
	sinLon, cosLon := math.Sin(o.lonRad), math.Cos(o.lonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return LookAngles{ElevationDeg: 90, Visible: true}
	}

	el := math.Asin(zenith/rng) * 180 / math.Pi
	// North is -South in SEZ.
	az := math.Atan2(east, -south) * 180 / math.Pi
	if az < 0 {
		az += 360
	}

	return LookAngles{
		AzimuthDeg:   az,
		ElevationDeg: el,
		RangeKm:      rng,
		Visible:      el >= MaskAngleDeg,
	}
}
