package solver

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/utils"
)

// Parameter indices of an objective vector.
const (
	ParamAzimuth = iota
	ParamElevation
	ParamTheta
	ParamDistance
	ParamPrincipalX
	ParamPrincipalY
)

// minDistance keeps refined cameras in front of the object.
const minDistance = 1e-3

// Objective is the continuous score of a pose against one feature map. Every evaluation
// re-projects the mesh, so visibility follows the pose, and features are sampled
// bilinearly. The parameter vector is azimuth, elevation, theta in radians, distance, and
// optionally the principal point in feature map pixels.
//
// An Objective is not safe for concurrent use.
type Objective struct {
	projector render.Projector
	scorer    *scorer
	principal bool
	evals     int
}

// NewObjective returns the objective for fm. principal adds the principal point to the
// parameters.
func (s *Solver) NewObjective(fm *features.Map, principal bool) (*Objective, error) {
	if err := s.checkMap(fm); err != nil {
		return nil, err
	}
	return &Objective{
		projector: s.projector,
		scorer:    newScorer(fm, s.bank, s.cfg, sampleBilinear),
		principal: principal,
	}, nil
}

// Dim returns the number of parameters.
func (o *Objective) Dim() int {
	if o.principal {
		return 6
	}
	return 4
}

// Evaluations returns the number of Evaluate calls so far.
func (o *Objective) Evaluations() int {
	return o.evals
}

// Params converts a pose in the projector's units to a parameter vector. A pose without a
// principal point uses the default one.
func (o *Objective) Params(pose camera.Pose) []float64 {
	p := pose.Radians(o.projector.Degrees())
	x := []float64{p.Azimuth, p.Elevation, p.Theta, p.Distance}
	if o.principal {
		pp := o.projector.Intrinsics().Principal(pose.Principal)
		x = append(x, pp.X, pp.Y)
	}
	return x
}

// Pose converts a parameter vector back to a pose in the projector's units.
func (o *Objective) Pose(x []float64) camera.Pose {
	pose := camera.Pose{
		Azimuth:   x[ParamAzimuth],
		Elevation: x[ParamElevation],
		Theta:     x[ParamTheta],
		Distance:  x[ParamDistance],
	}
	if o.principal {
		rate := float64(o.projector.Intrinsics().DownSampleRate)
		pose.Principal = &r2.Point{X: x[ParamPrincipalX] * rate, Y: x[ParamPrincipalY] * rate}
	}
	if o.projector.Degrees() {
		pose = pose.Degrees()
	}
	return pose
}

// Bounds returns per parameter limits. Elevation is limited to the poles and distance to
// positive values. Angles about an axis are unbounded.
func (o *Objective) Bounds() (lower, upper []float64) {
	inf := math.Inf(1)
	lower = []float64{-inf, -math.Pi / 2, -inf, minDistance}
	upper = []float64{inf, math.Pi / 2, inf, inf}
	if o.principal {
		intrinsics := o.projector.Intrinsics()
		lower = append(lower, 0, 0)
		upper = append(upper, float64(intrinsics.Width), float64(intrinsics.Height))
	}
	return lower, upper
}

// Clamp writes x limited to Bounds into dst and returns it. A nil dst is allocated.
func (o *Objective) Clamp(dst, x []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	lower, upper := o.Bounds()
	for i := range x {
		dst[i] = utils.Clamp(x[i], lower[i], upper[i])
	}
	return dst
}

// Evaluate scores a parameter vector. Vectors that do not form a camera, or under which no
// vertex is visible, score −Inf.
func (o *Objective) Evaluate(x []float64) float64 {
	o.evals++
	if !utils.IsFinite(x...) || x[ParamDistance] < minDistance {
		return math.Inf(-1)
	}
	proj, err := o.projector.ProjectPose(o.Pose(x))
	if err != nil {
		return math.Inf(-1)
	}
	return o.scorer.score(proj)
}

// Gradient fills grad with central differences of step jump. A parameter whose
// neighborhood leaves the objective's domain gets a zero derivative.
func (o *Objective) Gradient(x []float64, jump float64, grad []float64) {
	probe := make([]float64, len(x))
	for i := range x {
		copy(probe, x)
		probe[i] = x[i] + jump
		up := o.Evaluate(probe)
		probe[i] = x[i] - jump
		down := o.Evaluate(probe)
		if !utils.IsFinite(up, down) {
			grad[i] = 0
			continue
		}
		grad[i] = (up - down) / (2 * jump)
	}
}
