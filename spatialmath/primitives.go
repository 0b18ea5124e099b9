package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// NewBoxMesh returns an axis aligned box centered at the origin with the given full side
// lengths. Faces wind counter-clockwise seen from outside.
func NewBoxMesh(dims r3.Vector) (*Mesh, error) {
	hx, hy, hz := dims.X/2, dims.Y/2, dims.Z/2
	vertices := []r3.Vector{
		{X: -hx, Y: -hy, Z: -hz},
		{X: hx, Y: -hy, Z: -hz},
		{X: hx, Y: hy, Z: -hz},
		{X: -hx, Y: hy, Z: -hz},
		{X: -hx, Y: -hy, Z: hz},
		{X: hx, Y: -hy, Z: hz},
		{X: hx, Y: hy, Z: hz},
		{X: -hx, Y: hy, Z: hz},
	}
	faces := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // -z
		{4, 5, 6}, {4, 6, 7}, // +z
		{0, 1, 5}, {0, 5, 4}, // -y
		{3, 6, 2}, {3, 7, 6}, // +y
		{0, 4, 7}, {0, 7, 3}, // -x
		{1, 2, 6}, {1, 6, 5}, // +x
	}
	return NewMesh(vertices, faces)
}

// NewGridBoxMesh returns an axis aligned box centered at the origin whose faces are each split
// into cells by cells squares, so that every face carries interior vertices. Faces wind
// counter-clockwise seen from outside.
func NewGridBoxMesh(dims r3.Vector, cells int) (*Mesh, error) {
	if cells < 1 {
		return nil, newInvalidMeshError("grid box needs at least 1 cell per side, got %d", cells)
	}
	size := [3]float64{dims.X, dims.Y, dims.Z}
	index := map[[3]int]int{}
	var vertices []r3.Vector
	vertex := func(idx [3]int) int {
		if i, ok := index[idx]; ok {
			return i
		}
		var p [3]float64
		for k := range p {
			p[k] = size[k] * (float64(idx[k])/float64(cells) - 0.5)
		}
		index[idx] = len(vertices)
		vertices = append(vertices, r3.Vector{X: p[0], Y: p[1], Z: p[2]})
		return index[idx]
	}

	var faces [][3]int
	for axis := 0; axis < 3; axis++ {
		u, v := (axis+1)%3, (axis+2)%3
		for _, side := range []int{0, cells} {
			for i := 0; i < cells; i++ {
				for j := 0; j < cells; j++ {
					corner := func(di, dj int) int {
						var idx [3]int
						idx[axis], idx[u], idx[v] = side, i+di, j+dj
						return vertex(idx)
					}
					c00, c10, c11, c01 := corner(0, 0), corner(1, 0), corner(1, 1), corner(0, 1)
					if side == cells {
						faces = append(faces, [3]int{c00, c10, c11}, [3]int{c00, c11, c01})
					} else {
						faces = append(faces, [3]int{c00, c11, c10}, [3]int{c00, c01, c11})
					}
				}
			}
		}
	}
	return NewMesh(vertices, faces)
}

// NewUVSphereMesh returns a sphere of the given radius with rings latitude bands and
// segments longitude slices.
func NewUVSphereMesh(radius float64, rings, segments int) (*Mesh, error) {
	if rings < 2 || segments < 3 {
		return nil, newInvalidMeshError("sphere needs at least 2 rings and 3 segments, got %d and %d", rings, segments)
	}
	vertices := []r3.Vector{{X: 0, Y: radius, Z: 0}}
	for ring := 1; ring < rings; ring++ {
		phi := math.Pi * float64(ring) / float64(rings)
		sinPhi, cosPhi := math.Sincos(phi)
		for seg := 0; seg < segments; seg++ {
			lambda := 2 * math.Pi * float64(seg) / float64(segments)
			sinL, cosL := math.Sincos(lambda)
			vertices = append(vertices, r3.Vector{X: radius * sinPhi * cosL, Y: radius * cosPhi, Z: radius * sinPhi * sinL})
		}
	}
	vertices = append(vertices, r3.Vector{X: 0, Y: -radius, Z: 0})
	bottom := len(vertices) - 1
	ringStart := func(ring int) int { return 1 + (ring-1)*segments }

	var faces [][3]int
	for seg := 0; seg < segments; seg++ {
		next := (seg + 1) % segments
		faces = append(faces, [3]int{0, ringStart(1) + next, ringStart(1) + seg})
	}
	for ring := 1; ring < rings-1; ring++ {
		for seg := 0; seg < segments; seg++ {
			next := (seg + 1) % segments
			a, b := ringStart(ring)+seg, ringStart(ring)+next
			c, d := ringStart(ring+1)+seg, ringStart(ring+1)+next
			faces = append(faces, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	last := ringStart(rings - 1)
	for seg := 0; seg < segments; seg++ {
		next := (seg + 1) % segments
		faces = append(faces, [3]int{bottom, last + seg, last + next})
	}
	return NewMesh(vertices, faces)
}
