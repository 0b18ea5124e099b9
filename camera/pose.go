package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/standardgalactic/neural-mesh/utils"
)

// Pose places the camera on a sphere around the object. Angles are in radians unless a
// caller converts them with Radians. Principal, when set, overrides the principal point in
// image pixels.
type Pose struct {
	Azimuth   float64   `json:"azimuth"`
	Elevation float64   `json:"elevation"`
	Theta     float64   `json:"theta"`
	Distance  float64   `json:"distance"`
	Principal *r2.Point `json:"principal,omitempty"`
}

// Validate rejects non-finite parameters and non-positive distances.
func (p Pose) Validate() error {
	if !utils.IsFinite(p.Azimuth, p.Elevation, p.Theta, p.Distance) {
		return NewInvalidPoseError("non-finite pose %v", p)
	}
	if p.Distance <= 0 {
		return NewInvalidPoseError("distance must be positive, got %v", p.Distance)
	}
	if p.Principal != nil && !utils.IsFinite(p.Principal.X, p.Principal.Y) {
		return NewInvalidPoseError("non-finite principal point %v", *p.Principal)
	}
	return nil
}

// Radians returns the pose with angles in radians, converting from degrees when degrees is set.
func (p Pose) Radians(degrees bool) Pose {
	if !degrees {
		return p
	}
	out := p
	out.Azimuth = utils.DegToRad(p.Azimuth)
	out.Elevation = utils.DegToRad(p.Elevation)
	out.Theta = utils.DegToRad(p.Theta)
	return out
}

// Degrees returns a radian pose with its angles converted to degrees.
func (p Pose) Degrees() Pose {
	out := p
	out.Azimuth = utils.RadToDeg(p.Azimuth)
	out.Elevation = utils.RadToDeg(p.Elevation)
	out.Theta = utils.RadToDeg(p.Theta)
	return out
}

// Normalized wraps azimuth and theta into [0, 2π) and clamps elevation into [−π/2, π/2].
func (p Pose) Normalized() Pose {
	out := p
	out.Azimuth = utils.WrapAngle(p.Azimuth)
	out.Theta = utils.WrapAngle(p.Theta)
	out.Elevation = utils.Clamp(p.Elevation, -math.Pi/2, math.Pi/2)
	return out
}

// Copy returns a deep copy of the pose.
func (p Pose) Copy() Pose {
	out := p
	if p.Principal != nil {
		pp := *p.Principal
		out.Principal = &pp
	}
	return out
}

func (p Pose) String() string {
	if p.Principal == nil {
		return fmt.Sprintf("{az: %.4f, el: %.4f, theta: %.4f, dist: %.4f}", p.Azimuth, p.Elevation, p.Theta, p.Distance)
	}
	return fmt.Sprintf("{az: %.4f, el: %.4f, theta: %.4f, dist: %.4f, pp: (%.2f, %.2f)}",
		p.Azimuth, p.Elevation, p.Theta, p.Distance, p.Principal.X, p.Principal.Y)
}
