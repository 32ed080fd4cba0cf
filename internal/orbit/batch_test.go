package orbit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestLocateAll(t *testing.T) {
	sats := gnss.Satellites()
	b := NewBatch(4, testLogger())

	positions, failed := b.LocateAll(context.Background(), sats, epoch)
	if failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if len(positions) != len(sats) {
		t.Fatalf("positions = %d, want %d", len(positions), len(sats))
	}
	for i, p := range positions {
		if p.SatelliteID != sats[i].ID {
			t.Errorf("positions[%d] = %s, want input order %s", i, p.SatelliteID, sats[i].ID)
		}
	}
}

func TestLocateAllSkipsFailures(t *testing.T) {
	sats := []gnss.SatelliteRecord{
		mustLookup(t, "G01"),
		{ID: "X01"}, // no elements
		{ID: "X02", TLE: []string{"1 bad", "2 bad"}},
		mustLookup(t, "E01"),
	}
	positions, failed := NewBatch(2, testLogger()).LocateAll(context.Background(), sats, epoch)

	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if len(positions) != 2 || positions[0].SatelliteID != "G01" || positions[1].SatelliteID != "E01" {
		t.Errorf("positions = %v, want G01 then E01", positions)
	}
}

func TestLocateAllEmpty(t *testing.T) {
	positions, failed := NewBatch(0, testLogger()).LocateAll(context.Background(), nil, time.Now())
	if positions != nil || failed != 0 {
		t.Errorf("got (%v, %d), want (nil, 0)", positions, failed)
	}
}

func TestLocateAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	positions, _ := NewBatch(1, testLogger()).LocateAll(ctx, gnss.Satellites(), epoch)
	if len(positions) > len(gnss.Satellites()) {
		t.Errorf("positions = %d, more than input", len(positions))
	}
}

func TestSkyOrdering(t *testing.T) {
	obs, _ := NewObserver(0, 0, 0)
	r := wgs84AKm
	positions := []Position{
		{SatelliteID: "LOW", ECEF: [3]float64{r + 10, 0, 1000}},
		{SatelliteID: "ZENITH", ECEF: [3]float64{r + 20000, 0, 0}},
		{SatelliteID: "BELOW", ECEF: [3]float64{-r - 20000, 0, 0}},
	}
	sky := Sky(obs, positions)

	want := []string{"ZENITH", "LOW", "BELOW"}
	for i, id := range want {
		if sky[i].SatelliteID != id {
			t.Errorf("sky[%d] = %s, want %s", i, sky[i].SatelliteID, id)
		}
	}
	if !sky[0].Visible || sky[2].Visible {
		t.Errorf("visibility = %v/%v, want zenith visible and below hidden", sky[0].Visible, sky[2].Visible)
	}
}
