// Package render projects meshes into feature maps and decides which vertices are visible.
package render

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

// Projection is the per-vertex result of projecting a mesh under one camera pose. It is never
// mutated after creation.
type Projection struct {
	// Coords are (row, col) sampling locations, clamped into the map when the projector
	// restricts to the boundary.
	Coords []camera.Coord
	// Raw are the corrected coordinates before clamping.
	Raw []camera.Coord
	// Inner marks raw coordinates inside [0, H) × [0, W).
	Inner []bool
	// Visible marks vertices that are the nearest surface along their ray and inside the map.
	Visible []bool
	// Weights is 1 or 0 for the hard projector and the transmittance for the soft one.
	Weights []float64
	// Distances are vertex distances to the camera center.
	Distances []float64
}

// NumVisible returns the number of visible vertices.
func (p *Projection) NumVisible() int {
	n := 0
	for _, v := range p.Visible {
		if v {
			n++
		}
	}
	return n
}

// VisibleIndices returns the indices of visible vertices in increasing order.
func (p *Projection) VisibleIndices() []int {
	out := make([]int, 0, len(p.Visible))
	for i, v := range p.Visible {
		if v {
			out = append(out, i)
		}
	}
	return out
}

// A Projector maps a camera pose to projected vertex coordinates and visibility. Projectors are
// immutable and safe for concurrent use.
type Projector interface {
	// Project projects the mesh under ext. principal overrides the principal point in image
	// pixels; nil uses the intrinsics default.
	Project(ext camera.Extrinsics, principal *r2.Point) (*Projection, error)
	// ProjectPose builds the extrinsics for pose and projects under them.
	ProjectPose(pose camera.Pose) (*Projection, error)
	Mesh() *spatialmath.Mesh
	Intrinsics() *camera.Intrinsics
	// Degrees reports whether poses are read in degrees.
	Degrees() bool
	Kind() Kind
}

// NewProjector returns the projector variant selected by cfg.Kind.
func NewProjector(mesh *spatialmath.Mesh, intrinsics *camera.Intrinsics, cfg Config) (Projector, error) {
	switch cfg.Kind {
	case KindSoft:
		return NewSoftVolumeProjector(mesh, intrinsics, cfg)
	case KindHard, "":
		if cfg.Kind == "" {
			cfg.Kind = KindHard
		}
		return NewHardMeshProjector(mesh, intrinsics, cfg)
	default:
		return nil, errors.Errorf("unknown projector kind %q", cfg.Kind)
	}
}

// base holds what both projector variants share: validated inputs and the geometric part of
// projection that precedes the visibility test.
type base struct {
	mesh       *spatialmath.Mesh
	intrinsics *camera.Intrinsics
	cfg        Config
}

func newBase(mesh *spatialmath.Mesh, intrinsics *camera.Intrinsics, cfg Config) (base, error) {
	if mesh == nil || mesh.NumVertices() == 0 {
		return base{}, errors.Wrap(spatialmath.ErrInvalidMesh, "projector needs a non-empty mesh")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return base{}, err
	}
	if err := cfg.Validate(); err != nil {
		return base{}, err
	}
	return base{mesh: mesh, intrinsics: intrinsics, cfg: cfg}, nil
}

func (b *base) Mesh() *spatialmath.Mesh {
	return b.mesh
}

func (b *base) Intrinsics() *camera.Intrinsics {
	return b.intrinsics
}

func (b *base) Degrees() bool {
	return b.cfg.Degrees
}

// cameraFrame is a mesh transformed into one camera.
type cameraFrame struct {
	center r3.Vector
	points []r3.Vector
	front  []bool
	proj   *Projection
}

// transform runs every step up to rasterization: camera center, projection with the principal
// point correction, inner mask, clamping and per-vertex camera distance.
func (b *base) transform(ext camera.Extrinsics, principal *r2.Point) (*cameraFrame, error) {
	center, err := ext.CameraCenter()
	if err != nil {
		return nil, err
	}
	pp := b.intrinsics.Principal(principal)
	n := b.mesh.NumVertices()
	frame := &cameraFrame{
		center: center,
		points: make([]r3.Vector, n),
		front:  make([]bool, n),
		proj: &Projection{
			Coords:    make([]camera.Coord, n),
			Raw:       make([]camera.Coord, n),
			Inner:     make([]bool, n),
			Visible:   make([]bool, n),
			Weights:   make([]float64, n),
			Distances: make([]float64, n),
		},
	}
	for i := 0; i < n; i++ {
		v := b.mesh.Vertex(i)
		pc := ext.Apply(v)
		frame.points[i] = pc
		raw, ok := b.intrinsics.Project(pc, pp)
		frame.front[i] = ok
		frame.proj.Raw[i] = raw
		frame.proj.Inner[i] = ok && b.intrinsics.Inner(raw)
		if b.cfg.RestrictToBoundary {
			frame.proj.Coords[i] = b.intrinsics.Clamp(raw)
		} else {
			frame.proj.Coords[i] = raw
		}
		frame.proj.Distances[i] = v.Distance(center)
	}
	return frame, nil
}

func (b *base) extrinsics(pose camera.Pose) (camera.Extrinsics, error) {
	return camera.BuildExtrinsics(pose, b.cfg.Degrees)
}
