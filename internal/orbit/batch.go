package orbit

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/gnss"
)

type locateJob struct {
	index int
	sat   gnss.SatelliteRecord
}

type locateResult struct {
	index int
	pos   Position
	err   error
	id    string
}

// Batch propagates many satellites on a fixed set of goroutines.
type Batch struct {
	workers int
	logger  *slog.Logger
}

// NewBatch creates a batch propagator; workers <= 0 uses GOMAXPROCS.
func NewBatch(workers int, logger *slog.Logger) *Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Batch{workers: workers, logger: logger}
}

// LocateAll propagates every satellite to t. Satellites without elements or
// whose propagation fails are logged and skipped; the returned positions
// keep the input order. Cancelling ctx stops feeding new work.
func (b *Batch) LocateAll(ctx context.Context, sats []gnss.SatelliteRecord, t time.Time) (positions []Position, failed int) {
	if len(sats) == 0 {
		return nil, 0
	}

	jobs := make(chan locateJob, b.workers*2)
	results := make(chan locateResult, b.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				pos, err := Locate(job.sat, t)
				select {
				case results <- locateResult{index: job.index, pos: pos, err: err, id: job.sat.ID}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, sat := range sats {
			select {
			case jobs <- locateJob{index: i, sat: sat}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]locateResult, 0, len(sats))
	for r := range results {
		if r.err != nil {
			failed++
			b.logger.Warn("propagation failed", "satellite", r.id, "error", r.err)
			continue
		}
		collected = append(collected, r)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	positions = make([]Position, len(collected))
	for i, r := range collected {
		positions[i] = r.pos
	}
	return positions, failed
}

// SkyEntry is one satellite as seen by an observer.
type SkyEntry struct {
	SatelliteID string `json:"satellite_id"`
	LookAngles
}

// Sky returns the look angles of every position from obs, highest
// elevation first.
func Sky(obs Observer, positions []Position) []SkyEntry {
	out := make([]SkyEntry, len(positions))
	for i, p := range positions {
		out[i] = SkyEntry{SatelliteID: p.SatelliteID, LookAngles: obs.Look(p)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ElevationDeg > out[j].ElevationDeg })
	return out
}
