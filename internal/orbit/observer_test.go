package orbit

import (
	"math"
	"testing"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
)

func TestNewObserverValidation(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, alt float64
		wantErr       bool
	}{
		{"equator", 0, 0, 0, false},
		{"bangalore", 12.97, 77.59, 920, false},
		{"north pole", 90, 0, 0, false},
		{"lat too high", 91, 0, 0, true},
		{"lon too low", 0, -181, 0, true},
		{"altitude too high", 0, 0, 20000, true},
		{"nan", math.NaN(), 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObserver(tt.lat, tt.lon, tt.alt)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewObserver err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestObserverECEFOnEquator(t *testing.T) {
	obs, err := NewObserver(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(obs.ecef[0]-wgs84AKm) > 1e-9 || math.Abs(obs.ecef[1]) > 1e-9 || math.Abs(obs.ecef[2]) > 1e-9 {
		t.Errorf("ecef = %v, want [%v 0 0]", obs.ecef, wgs84AKm)
	}
}

// TestLookZenith places a satellite directly above the observer.
func TestLookZenith(t *testing.T) {
	obs, _ := NewObserver(0, 0, 0)
	pos := Position{ECEF: [3]float64{wgs84AKm + 20000, 0, 0}}

	la := obs.Look(pos)
	if math.Abs(la.ElevationDeg-90) > 1e-6 {
		t.Errorf("elevation = %v, want 90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-20000) > 1e-6 {
		t.Errorf("range = %v, want 20000", la.RangeKm)
	}
	if !la.Visible {
		t.Error("zenith satellite should be visible")
	}
}

func TestLookCardinalDirections(t *testing.T) {
	obs, _ := NewObserver(0, 0, 0)
	r := wgs84AKm

	tests := []struct {
		name   string
		ecef   [3]float64
		wantAz float64
	}{
		{"north", [3]float64{r, 0, 1000}, 0},
		{"east", [3]float64{r, 1000, 0}, 90},
		{"south", [3]float64{r, 0, -1000}, 180},
		{"west", [3]float64{r, -1000, 0}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := obs.Look(Position{ECEF: tt.ecef})
			if math.Abs(la.AzimuthDeg-tt.wantAz) > 1e-6 {
				t.Errorf("azimuth = %v, want %v", la.AzimuthDeg, tt.wantAz)
			}
			if math.Abs(la.ElevationDeg) > 1e-6 {
				t.Errorf("elevation = %v, want 0 (on the horizon)", la.ElevationDeg)
			}
			if la.Visible {
				t.Error("horizon satellite should be below the mask")
			}
		})
	}
}

// TestLookBelowHorizon checks a satellite on the far side of the Earth.
func TestLookBelowHorizon(t *testing.T) {
	obs, _ := NewObserver(0, 0, 0)
	la := obs.Look(Position{ECEF: [3]float64{-26560, 0, 0}})
	if la.ElevationDeg > -80 {
		t.Errorf("elevation = %v, want near -90", la.ElevationDeg)
	}
	if la.Visible {
		t.Error("satellite behind the Earth should not be visible")
	}
}

// TestLookGEOFromSubSatellitePoint checks a real GEO satellite seen from
// directly below it.
func TestLookGEOFromSubSatellitePoint(t *testing.T) {
	sat, err := gnss.LookupSatellite("C01")
	if err != nil {
		t.Fatal(err)
	}
	pos, err := Locate(sat, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	obs, err := NewObserver(pos.Latitude, pos.Longitude, 0)
	if err != nil {
		t.Fatal(err)
	}
	la := obs.Look(pos)
	if la.ElevationDeg < 85 {
		t.Errorf("elevation = %.2f, want near zenith", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-pos.AltitudeKm) > 50 {
		t.Errorf("range = %.1f km, want about altitude %.1f km", la.RangeKm, pos.AltitudeKm)
	}
}
