package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Angle returns the rotation angle in [0, π].
func (rm *RotationMatrix) Angle() float64 {
	cos := (rm.mat[0] + rm.mat[4] + rm.mat[8] - 1) / 2
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// Log returns the principal matrix logarithm of the rotation, a skew-symmetric matrix
// θ·[n]ₓ with θ in [0, π]. Non-finite input yields a matrix of NaNs.
func (rm *RotationMatrix) Log() *mat.Dense {
	if !rm.IsFinite() {
		nan := math.NaN()
		return mat.NewDense(3, 3, []float64{nan, nan, nan, nan, nan, nan, nan, nan, nan})
	}
	theta := rm.Angle()
	m := rm.mat
	// Antisymmetric part, equal to sin(θ)·[n]ₓ.
	ax, ay, az := (m[7]-m[5])/2, (m[2]-m[6])/2, (m[3]-m[1])/2
	sin := math.Sin(theta)

	var scale float64
	switch {
	case theta < 1e-5:
		scale = 1 + theta*theta/6
	case sin > 1e-6:
		scale = theta / sin
	default:
		// Near π the antisymmetric part vanishes; recover the axis from the symmetric part.
		n := axisNearPi(m, ax, ay, az)
		return skew(n[0]*theta, n[1]*theta, n[2]*theta)
	}
	return skew(ax*scale, ay*scale, az*scale)
}

// axisNearPi solves (R + I)/2 = n·nᵀ for the unit axis n, choosing the sign that agrees with
// the remaining antisymmetric part.
func axisNearPi(m [9]float64, ax, ay, az float64) [3]float64 {
	diag := [3]float64{m[0], m[4], m[8]}
	k := 0
	for i := 1; i < 3; i++ {
		if diag[i] > diag[k] {
			k = i
		}
	}
	var n [3]float64
	n[k] = math.Sqrt(math.Max(0, (diag[k]+1)/2))
	for i := 0; i < 3; i++ {
		if i != k {
			n[i] = (m[k*3+i] + m[i*3+k]) / (4 * n[k])
		}
	}
	if n[0]*ax+n[1]*ay+n[2]*az < 0 {
		n[0], n[1], n[2] = -n[0], -n[1], -n[2]
	}
	norm := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	return [3]float64{n[0] / norm, n[1] / norm, n[2] / norm}
}

func skew(x, y, z float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -z, y,
		z, 0, -x,
		-y, x, 0,
	})
}
