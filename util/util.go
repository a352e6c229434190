// Package util holds numeric helpers shared by the value and stream packages.
package util

import (
	"math"
)

// Clamp restricts v to the closed range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Round rounds v to the given number of decimals. A negative precision
// returns v untouched.
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	if decimals == 0 {
		return math.Round(v)
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
