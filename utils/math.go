package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// WrapAngle wraps an angle in radians into [0, 2π).
func WrapAngle(rad float64) float64 {
	wrapped := math.Mod(rad, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	if wrapped >= 2*math.Pi {
		wrapped = 0
	}
	return wrapped
}

// Clamp returns v limited to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Linspace returns steps evenly spaced values starting at lo. With endpoint the last
// value is hi, otherwise the interval [lo, hi) is divided into steps parts.
// A single step yields lo.
func Linspace(lo, hi float64, steps int, endpoint bool) []float64 {
	if steps <= 0 {
		return nil
	}
	out := make([]float64, steps)
	if steps == 1 {
		out[0] = lo
		return out
	}
	div := float64(steps)
	if endpoint {
		div = float64(steps - 1)
	}
	delta := (hi - lo) / div
	for i := range out {
		out[i] = lo + float64(i)*delta
	}
	if endpoint {
		out[steps-1] = hi
	}
	return out
}
