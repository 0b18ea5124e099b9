package camera

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/standardgalactic/neural-mesh/spatialmath"
)

// degenerateEps bounds |up × forward| below which the look-at basis is undefined.
const degenerateEps = 1e-9

// Extrinsics is the world to camera transform Xc = R·X + T for column vectors.
type Extrinsics struct {
	R *spatialmath.RotationMatrix
	T r3.Vector
}

// Apply maps a world point into the camera frame.
func (e Extrinsics) Apply(x r3.Vector) r3.Vector {
	return e.R.Apply(x).Add(e.T)
}

// CameraCenter returns the camera location in world coordinates, −R⁻¹T.
func (e Extrinsics) CameraCenter() (r3.Vector, error) {
	if e.R == nil {
		return r3.Vector{}, NewInvalidPoseError("missing rotation")
	}
	var x mat.VecDense
	if err := x.SolveVec(e.R.Dense(), mat.NewVecDense(3, []float64{e.T.X, e.T.Y, e.T.Z})); err != nil {
		return r3.Vector{}, NewInvalidPoseError("singular rotation: %v", err)
	}
	center := r3.Vector{X: -x.AtVec(0), Y: -x.AtVec(1), Z: -x.AtVec(2)}
	if math.IsNaN(center.Norm()) || math.IsInf(center.Norm(), 0) {
		return r3.Vector{}, NewInvalidPoseError("non-finite camera center")
	}
	return center, nil
}

// CameraPositionFromSpherical returns the camera location for the given spherical angles in
// radians, with elevation measured from the XZ plane towards +Y and azimuth about +Y from +Z.
func CameraPositionFromSpherical(azimuth, elevation, distance float64) r3.Vector {
	sinA, cosA := math.Sincos(azimuth)
	sinE, cosE := math.Sincos(elevation)
	return r3.Vector{
		X: distance * cosE * sinA,
		Y: distance * sinE,
		Z: distance * cosE * cosA,
	}
}

// LookAt returns the rotation whose rows are the camera axes for a camera at eye looking at
// at. The camera z axis points at the target, x = up × z and y = z × x.
func LookAt(eye, at, up r3.Vector) (*spatialmath.RotationMatrix, error) {
	forward := at.Sub(eye)
	if forward.Norm() < degenerateEps {
		return nil, NewInvalidPoseError("camera at the look-at target")
	}
	z := forward.Normalize()
	x := up.Cross(z)
	if x.Norm() < degenerateEps {
		return nil, NewInvalidPoseError("up vector %v is parallel to the view direction", up)
	}
	x = x.Normalize()
	y := z.Cross(x)
	return spatialmath.NewRotationMatrixFromRows(x, y, z), nil
}

// BuildExtrinsics computes the camera transform for a pose: a look-at onto the origin from
// the spherical position, followed by an in-plane rotation of theta about the optical axis.
// With degrees set the pose angles are read as degrees.
func BuildExtrinsics(pose Pose, degrees bool) (Extrinsics, error) {
	if err := pose.Validate(); err != nil {
		return Extrinsics{}, err
	}
	p := pose.Radians(degrees)
	eye := CameraPositionFromSpherical(p.Azimuth, p.Elevation, p.Distance)

	up := r3.Vector{Y: 1}
	if math.Abs(math.Cos(p.Elevation)) < degenerateEps {
		// At the poles +Y is the view direction; use the limit of the basis as the camera
		// approaches the pole along its azimuth.
		sinA, cosA := math.Sincos(p.Azimuth)
		up = r3.Vector{X: sinA, Z: cosA}.Mul(-math.Copysign(1, math.Sin(p.Elevation)))
	}
	lookAt, err := LookAt(eye, r3.Vector{}, up)
	if err != nil {
		return Extrinsics{}, err
	}

	// Rotating the image by theta rotates the camera frame by −theta about its z axis.
	rot := spatialmath.RotationAboutZ(-p.Theta).Mul(lookAt)
	t := lookAt.Apply(eye).Mul(-1)
	return Extrinsics{R: rot, T: t}, nil
}
