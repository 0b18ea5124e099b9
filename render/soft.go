package render

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

// gaussianCutoff is the radius, in projected standard deviations, beyond which a gaussian does
// not occlude.
const gaussianCutoff = 3

// SoftVolumeProjector treats every vertex as an isotropic gaussian of radius sigma. A vertex's
// weight is the transmittance along its ray through the gaussians in front of it, so the
// weight falls continuously as it becomes occluded.
type SoftVolumeProjector struct {
	base
	sigma float64
}

// NewSoftVolumeProjector returns a gaussian volume projector.
func NewSoftVolumeProjector(mesh *spatialmath.Mesh, intrinsics *camera.Intrinsics, cfg Config) (*SoftVolumeProjector, error) {
	cfg.Kind = KindSoft
	b, err := newBase(mesh, intrinsics, cfg)
	if err != nil {
		return nil, err
	}
	sigma := cfg.SoftSigma
	if sigma == 0 {
		sigma = mesh.MeanEdgeLength() / 2
	}
	if !(sigma > 0) {
		return nil, spatialmath.ErrInvalidMesh
	}
	return &SoftVolumeProjector{base: b, sigma: sigma}, nil
}

// Kind returns KindSoft.
func (p *SoftVolumeProjector) Kind() Kind {
	return KindSoft
}

// Sigma returns the gaussian radius in scene units.
func (p *SoftVolumeProjector) Sigma() float64 {
	return p.sigma
}

// ProjectPose builds the extrinsics for pose and projects under them.
func (p *SoftVolumeProjector) ProjectPose(pose camera.Pose) (*Projection, error) {
	ext, err := p.extrinsics(pose)
	if err != nil {
		return nil, err
	}
	return p.Project(ext, pose.Principal)
}

// Project projects the mesh and computes per-vertex transmittance. Only gaussians at least one
// sigma nearer the camera occlude, so neighbors on the same surface do not dim each other.
func (p *SoftVolumeProjector) Project(ext camera.Extrinsics, principal *r2.Point) (*Projection, error) {
	frame, err := p.transform(ext, principal)
	if err != nil {
		return nil, err
	}
	proj := frame.proj

	order := make([]int, 0, len(frame.points))
	radius := make([]float64, len(frame.points))
	for i, pc := range frame.points {
		if frame.front[i] {
			order = append(order, i)
			radius[i] = p.sigma * p.intrinsics.Fx / pc.Z
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return frame.points[order[a]].Z < frame.points[order[b]].Z
	})

	opacity := p.cfg.SoftOpacity
	for _, i := range order {
		if !proj.Inner[i] {
			continue
		}
		zi, ri := frame.points[i].Z, proj.Raw[i]
		transmittance := 1.0
		for _, j := range order {
			if frame.points[j].Z >= zi-p.sigma {
				break
			}
			s := radius[j]
			dr, dc := ri.Row-proj.Raw[j].Row, ri.Col-proj.Raw[j].Col
			d2 := dr*dr + dc*dc
			if d2 > gaussianCutoff*gaussianCutoff*s*s {
				continue
			}
			transmittance *= 1 - opacity*math.Exp(-d2/(2*s*s))
		}
		proj.Weights[i] = transmittance
		proj.Visible[i] = transmittance > p.cfg.SoftVisibilityThreshold
	}
	return proj, nil
}
