package render

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

// HardMeshProjector decides visibility by comparing each vertex's camera distance against the
// rasterized depth at its pixel. A vertex hidden behind a nearer part of the mesh samples the
// nearer depth and fails the test.
type HardMeshProjector struct {
	base
	faces [][3]int
}

// NewHardMeshProjector returns a depth buffer projector.
func NewHardMeshProjector(mesh *spatialmath.Mesh, intrinsics *camera.Intrinsics, cfg Config) (*HardMeshProjector, error) {
	cfg.Kind = KindHard
	b, err := newBase(mesh, intrinsics, cfg)
	if err != nil {
		return nil, err
	}
	return &HardMeshProjector{base: b, faces: mesh.Faces()}, nil
}

// Kind returns KindHard.
func (p *HardMeshProjector) Kind() Kind {
	return KindHard
}

// ProjectPose builds the extrinsics for pose and projects under them.
func (p *HardMeshProjector) ProjectPose(pose camera.Pose) (*Projection, error) {
	ext, err := p.extrinsics(pose)
	if err != nil {
		return nil, err
	}
	return p.Project(ext, pose.Principal)
}

// Project projects the mesh and runs the depth test.
func (p *HardMeshProjector) Project(ext camera.Extrinsics, principal *r2.Point) (*Projection, error) {
	proj, _, err := p.project(ext, principal)
	return proj, err
}

// ProjectWithDepth is Project that also returns the depth map used for the visibility test.
func (p *HardMeshProjector) ProjectWithDepth(ext camera.Extrinsics, principal *r2.Point) (*Projection, *DepthMap, error) {
	return p.project(ext, principal)
}

func (p *HardMeshProjector) project(ext camera.Extrinsics, principal *r2.Point) (*Projection, *DepthMap, error) {
	frame, err := p.transform(ext, principal)
	if err != nil {
		return nil, nil, err
	}
	depth := p.depthMap(frame)
	proj := frame.proj
	for i := range proj.Visible {
		if !proj.Inner[i] {
			continue
		}
		sampled := depth.Sample(proj.Coords[i])
		if math.Abs(sampled-proj.Distances[i]) < p.cfg.VisibilityThreshold {
			proj.Visible[i] = true
			proj.Weights[i] = 1
		}
	}
	return proj, depth, nil
}

func (p *HardMeshProjector) depthMap(frame *cameraFrame) *DepthMap {
	depths := make([]float64, len(frame.points))
	for i, pc := range frame.points {
		depths[i] = pc.Z
	}
	frags := Rasterize(frame.proj.Raw, depths, p.faces, p.intrinsics.Height, p.intrinsics.Width,
		RasterSettings{BlurRadius: p.cfg.BlurRadius})
	return NewDepthMap(frags, p.faces, frame.proj.Distances)
}
