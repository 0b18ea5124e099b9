package render

import (
	"math"

	"github.com/standardgalactic/neural-mesh/camera"
)

// minDepth is the nearest camera depth a face may have to be rasterized.
const minDepth = 1e-6

// RasterSettings controls triangle coverage.
type RasterSettings struct {
	// BlurRadius extends each triangle by this many pixels. Pixels in the extension use
	// barycentrics clipped to the triangle.
	BlurRadius float64
}

// Fragments is the z-buffered rasterization of a mesh: per pixel, the nearest face and its
// perspective correct barycentric weights. Pixels are row-major; pixel (r, c) is sampled at
// its center (r + 0.5, c + 0.5).
type Fragments struct {
	Height    int
	Width     int
	PixToFace []int
	Bary      [][3]float64
	// Zbuf is the camera depth of the nearest surface, +Inf for background.
	Zbuf []float64
}

// Covered reports whether pixel i shows any face.
func (f *Fragments) Covered(i int) bool {
	return f.PixToFace[i] >= 0
}

// Rasterize z-buffers the faces given per-vertex (row, col) coordinates and camera depths.
// Faces with any corner at depth ≤ minDepth are skipped. Faces are rasterized regardless of
// winding.
func Rasterize(coords []camera.Coord, depths []float64, faces [][3]int, height, width int, settings RasterSettings) *Fragments {
	n := height * width
	frags := &Fragments{
		Height:    height,
		Width:     width,
		PixToFace: make([]int, n),
		Bary:      make([][3]float64, n),
		Zbuf:      make([]float64, n),
	}
	for i := range frags.PixToFace {
		frags.PixToFace[i] = -1
		frags.Zbuf[i] = math.Inf(1)
	}
	blur := settings.BlurRadius
	for fi, face := range faces {
		var tri [3]point
		var z [3]float64
		skip := false
		for k, vi := range face {
			z[k] = depths[vi]
			if !(z[k] > minDepth) {
				skip = true
				break
			}
			tri[k] = point{x: coords[vi].Col, y: coords[vi].Row}
		}
		if skip {
			continue
		}
		area := edge(tri[0], tri[1], tri[2])
		if math.Abs(area) < 1e-12 || math.IsNaN(area) || math.IsInf(area, 0) {
			continue
		}

		minX := math.Min(tri[0].x, math.Min(tri[1].x, tri[2].x)) - blur
		maxX := math.Max(tri[0].x, math.Max(tri[1].x, tri[2].x)) + blur
		minY := math.Min(tri[0].y, math.Min(tri[1].y, tri[2].y)) - blur
		maxY := math.Max(tri[0].y, math.Max(tri[1].y, tri[2].y)) + blur
		c0, c1 := pixelSpan(minX, maxX, width)
		r0, r1 := pixelSpan(minY, maxY, height)

		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				p := point{x: float64(c) + 0.5, y: float64(r) + 0.5}
				w := [3]float64{
					edge(tri[1], tri[2], p) / area,
					edge(tri[2], tri[0], p) / area,
					edge(tri[0], tri[1], p) / area,
				}
				if w[0] < 0 || w[1] < 0 || w[2] < 0 {
					if blur <= 0 || distanceToTriangle(p, tri) > blur {
						continue
					}
					w = clipBarycentric(w)
				}
				var sum float64
				for k := range w {
					w[k] /= z[k]
					sum += w[k]
				}
				if sum <= 0 {
					continue
				}
				depth := 1 / sum
				idx := r*width + c
				if depth < frags.Zbuf[idx] {
					frags.Zbuf[idx] = depth
					frags.PixToFace[idx] = fi
					frags.Bary[idx] = [3]float64{w[0] / sum, w[1] / sum, w[2] / sum}
				}
			}
		}
	}
	return frags
}

// InterpolateScalar blends a per-vertex attribute over the covered pixels. Background pixels
// get the value 0.
func (f *Fragments) InterpolateScalar(faces [][3]int, attr []float64) []float64 {
	out := make([]float64, len(f.PixToFace))
	for i, fi := range f.PixToFace {
		if fi < 0 {
			continue
		}
		face, bary := faces[fi], f.Bary[i]
		out[i] = bary[0]*attr[face[0]] + bary[1]*attr[face[1]] + bary[2]*attr[face[2]]
	}
	return out
}

// pixelSpan returns the inclusive range of pixels whose centers may fall in [lo, hi].
// An empty span has first > last.
func pixelSpan(lo, hi float64, size int) (int, int) {
	first := math.Max(0, math.Floor(lo-0.5))
	last := math.Min(float64(size-1), math.Ceil(hi-0.5))
	if first > last {
		return 1, 0
	}
	return int(first), int(last)
}

type point struct {
	x, y float64
}

// edge is twice the signed area of (a, b, p).
func edge(a, b, p point) float64 {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}

func clipBarycentric(w [3]float64) [3]float64 {
	var sum float64
	for k := range w {
		w[k] = math.Max(0, w[k])
		sum += w[k]
	}
	if sum == 0 {
		return [3]float64{1. / 3, 1. / 3, 1. / 3}
	}
	return [3]float64{w[0] / sum, w[1] / sum, w[2] / sum}
}

func distanceToTriangle(p point, tri [3]point) float64 {
	d := math.Inf(1)
	for k := 0; k < 3; k++ {
		d = math.Min(d, distanceToSegment(p, tri[k], tri[(k+1)%3]))
	}
	return d
}

func distanceToSegment(p, a, b point) float64 {
	dx, dy := b.x-a.x, b.y-a.y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = math.Max(0, math.Min(1, ((p.x-a.x)*dx+(p.y-a.y)*dy)/lenSq))
	}
	ex, ey := a.x+t*dx-p.x, a.y+t*dy-p.y
	return math.Sqrt(ex*ex + ey*ey)
}
