package render

import (
	"math"

	"github.com/standardgalactic/neural-mesh/camera"
)

// DepthMap holds, per feature map pixel, the camera distance of the visible surface. Background
// pixels are 0.
type DepthMap struct {
	height int
	width  int
	data   []float64
}

// NewDepthMap interpolates per-vertex camera distances over the rasterized faces.
func NewDepthMap(frags *Fragments, faces [][3]int, distances []float64) *DepthMap {
	return &DepthMap{
		height: frags.Height,
		width:  frags.Width,
		data:   frags.InterpolateScalar(faces, distances),
	}
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	return dm.width
}

// At returns the depth at a pixel.
func (dm *DepthMap) At(row, col int) float64 {
	return dm.data[row*dm.width+col]
}

// Sample returns the depth of the pixel containing c, clamping c to the map first.
func (dm *DepthMap) Sample(c camera.Coord) float64 {
	row := math.Max(0, math.Min(float64(dm.height-1), math.Floor(c.Row)))
	col := math.Max(0, math.Min(float64(dm.width-1), math.Floor(c.Col)))
	if math.IsNaN(row) || math.IsNaN(col) {
		return 0
	}
	return dm.At(int(row), int(col))
}

// MinMax returns the range of non-background depths, or (0, 0) if nothing is covered.
func (dm *DepthMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range dm.data {
		if d > 0 {
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
