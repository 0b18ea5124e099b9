package spatialmath

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewMeshValidation(t *testing.T) {
	_, err := NewMesh(nil, [][3]int{{0, 1, 2}})
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	verts := []r3.Vector{{}, {X: 1}, {Y: 1}}
	_, err = NewMesh(verts, nil)
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMesh(verts, [][3]int{{0, 1, 3}})
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMesh(verts, [][3]int{{0, 1, 1}})
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMesh([]r3.Vector{{X: math.NaN()}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	m, err := NewMesh(verts, [][3]int{{0, 1, 2}})
	test.That(t, err, test.ShouldBeNil)
	verts[0] = r3.Vector{X: 5}
	test.That(t, m.Vertex(0), test.ShouldResemble, r3.Vector{})
	test.That(t, NewTriangle(verts[1], verts[2], r3.Vector{X: 1, Y: 1}).Area(), test.ShouldAlmostEqual, 0.5)
	test.That(t, NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2}).Area(), test.ShouldEqual, 0.0)
}

// outward reports whether every face of a mesh centered at the origin winds counter-clockwise
// seen from outside.
func outward(t *testing.T, m *Mesh) {
	t.Helper()
	for i := 0; i < m.NumFaces(); i++ {
		f := m.Face(i)
		a, b, c := m.Vertex(f[0]), m.Vertex(f[1]), m.Vertex(f[2])
		normal := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1. / 3)
		test.That(t, normal.Dot(centroid), test.ShouldBeGreaterThan, 0)
	}
}

func TestBoxMesh(t *testing.T) {
	box, err := NewBoxMesh(r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.NumVertices(), test.ShouldEqual, 8)
	test.That(t, box.NumFaces(), test.ShouldEqual, 12)
	test.That(t, box.Centroid().Norm(), test.ShouldAlmostEqual, 0)
	test.That(t, box.BoundingRadius(), test.ShouldAlmostEqual, math.Sqrt(3))

	outward(t, box)

	shifted := box.Scaled(0.5)
	test.That(t, shifted.BoundingRadius(), test.ShouldAlmostEqual, math.Sqrt(3)/2)
}

func TestGridBoxMesh(t *testing.T) {
	box, err := NewGridBoxMesh(r3.Vector{X: 0.3, Y: 0.3, Z: 0.3}, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.NumVertices(), test.ShouldEqual, 98)
	test.That(t, box.NumFaces(), test.ShouldEqual, 192)
	test.That(t, box.Centroid().Norm(), test.ShouldAlmostEqual, 0)
	test.That(t, box.BoundingRadius(), test.ShouldAlmostEqual, 0.15*math.Sqrt(3))
	test.That(t, box.MeanEdgeLength(), test.ShouldBeBetween, 0.075, 0.075*math.Sqrt2)
	outward(t, box)

	// The front face has a 3 by 3 block of interior vertices.
	var interior int
	for _, v := range box.Vertices() {
		if math.Abs(v.Z-0.15) < 1e-12 && math.Abs(v.X) < 0.1 && math.Abs(v.Y) < 0.1 {
			interior++
		}
	}
	test.That(t, interior, test.ShouldEqual, 9)

	single, err := NewGridBoxMesh(r3.Vector{X: 2, Y: 2, Z: 2}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, single.NumVertices(), test.ShouldEqual, 8)
	test.That(t, single.NumFaces(), test.ShouldEqual, 12)
	outward(t, single)

	_, err = NewGridBoxMesh(r3.Vector{X: 1, Y: 1, Z: 1}, 0)
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
}

func TestUVSphereMesh(t *testing.T) {
	sphere, err := NewUVSphereMesh(1, 8, 12)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sphere.NumVertices(), test.ShouldEqual, 2+7*12)
	test.That(t, sphere.NumFaces(), test.ShouldEqual, 2*12+2*6*12)
	for _, v := range sphere.Vertices() {
		test.That(t, v.Norm(), test.ShouldAlmostEqual, 1)
	}
	outward(t, sphere)
	test.That(t, sphere.MeanEdgeLength(), test.ShouldBeGreaterThan, 0)

	_, err = NewUVSphereMesh(1, 1, 12)
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
}

const tetrahedronOFF = `OFF
# a tetrahedron with a quad base split in two
5 3 0
0 0 0
1 0 0
1 1 0
0 1 0
0.5 0.5 1
4 0 1 2 3
3 0 1 4
3 1 2 4
`

func TestNewMeshFromOFF(t *testing.T) {
	m, err := NewMeshFromOFF(strings.NewReader(tetrahedronOFF))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumVertices(), test.ShouldEqual, 5)
	test.That(t, m.NumFaces(), test.ShouldEqual, 4)
	test.That(t, m.Face(1), test.ShouldResemble, [3]int{0, 2, 3})

	centered := m.Centered()
	test.That(t, centered.Centroid().Norm(), test.ShouldAlmostEqual, 0)

	_, err = NewMeshFromOFF(strings.NewReader("PLY\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMeshFromOFF(strings.NewReader("OFF\n2 1 0\n0 0 0\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	path := filepath.Join(t.TempDir(), "tet.off")
	test.That(t, os.WriteFile(path, []byte(tetrahedronOFF), 0o600), test.ShouldBeNil)
	fromFile, err := NewMeshFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromFile.Vertices(), test.ShouldResemble, m.Vertices())

	_, err = NewMeshFromFile(filepath.Join(t.TempDir(), "mesh.stl"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewMeshFromOFFCounts(t *testing.T) {
	_, err := NewMeshFromOFF(strings.NewReader("OFF\n9999999999 1 0\n0 0 0\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMeshFromOFF(strings.NewReader("OFF\n4000000 1 0\n0 0 0\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading vertex 1")

	_, err = NewMeshFromOFF(strings.NewReader("OFF\n-1 1 0\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)

	_, err = NewMeshFromOFF(strings.NewReader("OFF\n3 1 0\n0 0 0\n1 0 0\n0 1 0\n3 0 1 7\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
}

func TestNewMeshFromOFFDropsDegenerateFaces(t *testing.T) {
	off := "OFF\n4 2 0\n0 0 0\n1 0 0\n2 0 0\n0 1 0\n3 0 1 2\n3 0 1 3\n"
	m, err := NewMeshFromOFF(strings.NewReader(off))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumFaces(), test.ShouldEqual, 1)
	test.That(t, m.Face(0), test.ShouldResemble, [3]int{0, 1, 3})

	_, err = NewMeshFromOFF(strings.NewReader("OFF\n3 1 0\n0 0 0\n1 0 0\n2 0 0\n3 0 1 2\n"))
	test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
}

const plyHeader = `ply
format ascii 1.0
comment unit square with a triangle and a quad
element vertex 5
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
`

func TestNewMeshFromPLY(t *testing.T) {
	body := "0 0 0\n1 0 0\n1 1 0\n0 1 0\n0.5 0.5 1\n3 0 1 4\n4 0 1 2 3\n"
	m, err := NewMeshFromPLY(strings.NewReader(plyHeader + body))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumVertices(), test.ShouldEqual, 5)
	test.That(t, m.Vertex(4), test.ShouldResemble, r3.Vector{X: 0.5, Y: 0.5, Z: 1})
	// The quad is fan triangulated around its first corner.
	test.That(t, m.NumFaces(), test.ShouldEqual, 3)
	test.That(t, m.Faces(), test.ShouldResemble, [][3]int{{0, 1, 4}, {0, 1, 2}, {0, 2, 3}})

	path := filepath.Join(t.TempDir(), "mesh.ply")
	test.That(t, os.WriteFile(path, []byte(plyHeader+body), 0o600), test.ShouldBeNil)
	fromFile, err := NewMeshFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromFile.Faces(), test.ShouldResemble, m.Faces())
}

func TestNewMeshFromPLYMalformed(t *testing.T) {
	for name, input := range map[string]string{
		"truncated header": "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\n",
		"huge count":       strings.Replace(plyHeader, "element vertex 5", "element vertex 99999999999", 1),
		"negative count":   strings.Replace(plyHeader, "element face 2", "element face -2", 1),
		"short body":       plyHeader + "0 0 0\n1 0 0\n",
		"bad index":        plyHeader + "0 0 0\n1 0 0\n1 1 0\n0 1 0\n0.5 0.5 1\n3 0 1 9\n3 0 1 2\n",
		"not ply":          "OFF\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewMeshFromPLY(strings.NewReader(input))
			test.That(t, errors.Is(err, ErrInvalidMesh), test.ShouldBeTrue)
		})
	}
}
