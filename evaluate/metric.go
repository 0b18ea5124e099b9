// Package evaluate measures pose predictions against ground truth.
package evaluate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

// MaxError is the error reported when a rotation distance cannot be computed.
const MaxError = math.Pi

// maxOrthonormalityError is the largest ‖RᵀR − I‖ accepted as a rotation.
const maxOrthonormalityError = 1e-6

// nominalDistance is the camera distance used to build the compared rotations. Rotation
// does not depend on distance, it only has to be valid.
const nominalDistance = 5

// RotationDistance returns the geodesic angle in [0, π] between the camera rotations of two
// poses given in radians: ‖log(R_bᵀ·R_a)‖_F / √2. Distances and principal points are
// ignored. A nil pose, or one that does not form a camera, yields MaxError.
//
// The metric is symmetric since R_aᵀ·R_b is the transpose, and so the inverse, of R_bᵀ·R_a.
func RotationDistance(a, b *camera.Pose) float64 {
	ra, ok := rotation(a)
	if !ok {
		return MaxError
	}
	rb, ok := rotation(b)
	if !ok {
		return MaxError
	}
	rel := rb.Transpose().Mul(ra)
	d := mat.Norm(rel.Log(), 2) / math.Sqrt2
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return MaxError
	}
	return math.Min(d, MaxError)
}

func rotation(p *camera.Pose) (*spatialmath.RotationMatrix, bool) {
	if p == nil {
		return nil, false
	}
	nominal := camera.Pose{Azimuth: p.Azimuth, Elevation: p.Elevation, Theta: p.Theta, Distance: nominalDistance}
	ext, err := camera.BuildExtrinsics(nominal, false)
	if err != nil || !ext.R.IsFinite() {
		return nil, false
	}
	if ext.R.OrthonormalityError() > maxOrthonormalityError || ext.R.Det() < 0 {
		return nil, false
	}
	return ext.R, true
}
