package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mesh is an immutable triangle mesh: vertex positions plus faces indexing into them.
// It is shared read-only by every projection of an object category.
type Mesh struct {
	vertices []r3.Vector
	faces    [][3]int
}

// NewMesh validates and copies the vertex and face arrays. Every face must reference three
// distinct in-range vertices.
func NewMesh(vertices []r3.Vector, faces [][3]int) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, newInvalidMeshError("mesh has no vertices")
	}
	if len(faces) == 0 {
		return nil, newInvalidMeshError("mesh has no faces")
	}
	for i, v := range vertices {
		if math.IsNaN(v.X+v.Y+v.Z) || math.IsInf(v.X+v.Y+v.Z, 0) {
			return nil, newInvalidMeshError("vertex %d is not finite: %v", i, v)
		}
	}
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, newInvalidMeshError("face %d references vertex %d of %d", i, idx, len(vertices))
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			return nil, newInvalidMeshError("face %d repeats a vertex: %v", i, f)
		}
	}
	m := &Mesh{
		vertices: make([]r3.Vector, len(vertices)),
		faces:    make([][3]int, len(faces)),
	}
	copy(m.vertices, vertices)
	copy(m.faces, faces)
	return m, nil
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int {
	return len(m.vertices)
}

// NumFaces returns the face count.
func (m *Mesh) NumFaces() int {
	return len(m.faces)
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) r3.Vector {
	return m.vertices[i]
}

// Face returns the vertex indices of face i.
func (m *Mesh) Face(i int) [3]int {
	return m.faces[i]
}

// Vertices returns a copy of the vertex positions.
func (m *Mesh) Vertices() []r3.Vector {
	out := make([]r3.Vector, len(m.vertices))
	copy(out, m.vertices)
	return out
}

// Faces returns a copy of the face indices.
func (m *Mesh) Faces() [][3]int {
	out := make([][3]int, len(m.faces))
	copy(out, m.faces)
	return out
}

// Centroid returns the mean vertex position.
func (m *Mesh) Centroid() r3.Vector {
	var sum r3.Vector
	for _, v := range m.vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(m.vertices)))
}

// Centered returns a copy of the mesh translated so its centroid is at the origin.
func (m *Mesh) Centered() *Mesh {
	c := m.Centroid()
	out := &Mesh{vertices: make([]r3.Vector, len(m.vertices)), faces: m.Faces()}
	for i, v := range m.vertices {
		out.vertices[i] = v.Sub(c)
	}
	return out
}

// Scaled returns a copy of the mesh with every vertex multiplied by s.
func (m *Mesh) Scaled(s float64) *Mesh {
	out := &Mesh{vertices: make([]r3.Vector, len(m.vertices)), faces: m.Faces()}
	for i, v := range m.vertices {
		out.vertices[i] = v.Mul(s)
	}
	return out
}

// BoundingRadius returns the largest vertex distance from the origin.
func (m *Mesh) BoundingRadius() float64 {
	var r float64
	for _, v := range m.vertices {
		r = math.Max(r, v.Norm())
	}
	return r
}

// MeanEdgeLength returns the mean length over all face edges, counting shared edges once per face.
func (m *Mesh) MeanEdgeLength() float64 {
	var sum float64
	for _, f := range m.faces {
		a, b, c := m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]]
		sum += a.Distance(b) + b.Distance(c) + c.Distance(a)
	}
	return sum / float64(3*len(m.faces))
}
