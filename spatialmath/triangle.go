package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Triangle is a face of a mesh.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector
}

// NewTriangle creates a triangle from three points.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{p0: p0, p1: p1, p2: p2}
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2
}
