package stats

import "math"

// winitzkiA is the constant of Winitzki's erf approximation.
const winitzkiA = 0.147

// quantileClamp is returned in place of a non-finite inverse.
const quantileClamp = 3.0

// ErfInv approximates the inverse error function on (-1, 1) with Winitzki's
// closed form. Arguments at or beyond ±1, and NaN, yield ±3 instead of a
// non-finite value.
func ErfInv(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}

	ln := math.Log(1 - x*x)
	t1 := 2/(math.Pi*winitzkiA) + ln/2
	t2 := ln / winitzkiA
	r := sign * math.Sqrt(math.Sqrt(t1*t1-t2)-t1)

	if math.IsNaN(r) || math.IsInf(r, 0) {
		return sign * quantileClamp
	}
	return r
}

// NormalQuantile returns the standard normal quantile for probability p.
func NormalQuantile(p float64) float64 {
	return math.Sqrt2 * ErfInv(2*p-1)
}
