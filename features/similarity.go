package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize scales v in place to unit L2 norm. Zero vectors are left unchanged.
func Normalize(v []float64) []float64 {
	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return v
	}
	floats.Scale(1/norm, v)
	return v
}

// Normalized returns a unit L2 norm copy of v.
func Normalized(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return Normalize(out)
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
