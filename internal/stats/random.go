// Package stats holds the numeric primitives shared by the synthetic error
// generators: an injectable uniform source, a Box-Muller Gaussian sampler and
// an inverse error function approximation.
package stats

import (
	"math"
	"math/rand/v2"
	"sync"
)

// maxResample bounds how many times Gaussian redraws a zero uniform before
// falling back to the smallest positive float.
const maxResample = 16

// Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Default returns the process-wide source. Safe for concurrent use.
func Default() Source {
	return globalSource{}
}

// lockedSource serializes access to a seeded generator so one seeded source
// can back a server handling concurrent requests.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a reproducible source. Safe for concurrent use.
func NewSeeded(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Gaussian draws one value from N(mean, std²) using the Box-Muller transform.
func Gaussian(src Source, mean, std float64) float64 {
	u1 := src.Float64()
	for i := 0; u1 <= 0 && i < maxResample; i++ {
		u1 = src.Float64()
	}
	if u1 <= 0 {
		u1 = math.SmallestNonzeroFloat64
	}
	u2 := src.Float64()
	return mean + std*math.Sqrt(-2*math.Log(u1))*math.Cos(2*math.Pi*u2)
}

// Uniform draws one value from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}
