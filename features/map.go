// Package features holds image feature maps and the per-vertex appearance bank they are
// matched against.
package features

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Map is a dense feature map of Channels values per location, stored row-major with channels
// innermost. Every location is L2 normalized on construction and the map is read-only after.
type Map struct {
	channels int
	height   int
	width    int
	data     []float64
}

// NewMap builds a map from channels-first (C, H, W) data, the layout backbone networks emit.
func NewMap(channels, height, width int, chw []float64) (*Map, error) {
	if channels <= 0 || height <= 0 || width <= 0 {
		return nil, NewShapeMismatchError("invalid feature map shape (%d, %d, %d)", channels, height, width)
	}
	if len(chw) != channels*height*width {
		return nil, NewShapeMismatchError("feature map data has %d values, shape (%d, %d, %d) needs %d",
			len(chw), channels, height, width, channels*height*width)
	}
	m := &Map{channels: channels, height: height, width: width, data: make([]float64, len(chw))}
	plane := height * width
	for c := 0; c < channels; c++ {
		for i := 0; i < plane; i++ {
			m.data[i*channels+c] = chw[c*plane+i]
		}
	}
	m.normalize()
	return m, nil
}

// NewMapFromHWC builds a map from channels-last data.
func NewMapFromHWC(channels, height, width int, hwc []float64) (*Map, error) {
	if channels <= 0 || height <= 0 || width <= 0 || len(hwc) != channels*height*width {
		return nil, NewShapeMismatchError("feature map data has %d values for shape (%d, %d, %d)",
			len(hwc), height, width, channels)
	}
	m := &Map{channels: channels, height: height, width: width, data: make([]float64, len(hwc))}
	copy(m.data, hwc)
	m.normalize()
	return m, nil
}

// NewMapFromTensor converts a (1, C, H, W) or (C, H, W) float tensor.
func NewMapFromTensor(t *tensor.Dense) (*Map, error) {
	if t == nil {
		return nil, errors.New("nil feature tensor")
	}
	shape := t.Shape()
	switch {
	case len(shape) == 4 && shape[0] == 1:
		shape = shape[1:]
	case len(shape) == 3:
	default:
		return nil, NewShapeMismatchError("feature tensor must have shape (1, C, H, W), got %v", shape)
	}
	data, err := float64Data(t)
	if err != nil {
		return nil, err
	}
	return NewMap(shape[0], shape[1], shape[2], data)
}

func float64Data(t *tensor.Dense) ([]float64, error) {
	switch data := t.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out, nil
	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported feature tensor type %v", t.Dtype())
	}
}

func (m *Map) normalize() {
	for i := 0; i < m.height*m.width; i++ {
		Normalize(m.data[i*m.channels : (i+1)*m.channels])
	}
}

// Channels returns the descriptor dimensionality.
func (m *Map) Channels() int {
	return m.channels
}

// Height returns the number of rows.
func (m *Map) Height() int {
	return m.height
}

// Width returns the number of columns.
func (m *Map) Width() int {
	return m.width
}

// At returns the normalized descriptor at a pixel. The returned slice aliases the map and
// must not be modified.
func (m *Map) At(row, col int) []float64 {
	i := (row*m.width + col) * m.channels
	return m.data[i : i+m.channels : i+m.channels]
}

// Nearest returns the descriptor of the pixel containing (row, col), clamped to the map.
func (m *Map) Nearest(row, col float64) []float64 {
	r := clampIndex(int(math.Floor(row)), m.height)
	c := clampIndex(int(math.Floor(col)), m.width)
	return m.At(r, c)
}

// Bilinear interpolates between pixel centers, which lie at (r + 0.5, c + 0.5), and writes
// the renormalized result into dst. Coordinates outside the map are clamped to its border.
func (m *Map) Bilinear(row, col float64, dst []float64) []float64 {
	if len(dst) != m.channels {
		dst = make([]float64, m.channels)
	}
	y := math.Max(0, math.Min(float64(m.height-1), row-0.5))
	x := math.Max(0, math.Min(float64(m.width-1), col-0.5))
	r0, c0 := int(math.Floor(y)), int(math.Floor(x))
	r1, c1 := clampIndex(r0+1, m.height), clampIndex(c0+1, m.width)
	fy, fx := y-float64(r0), x-float64(c0)

	a, b, c, d := m.At(r0, c0), m.At(r0, c1), m.At(r1, c0), m.At(r1, c1)
	for i := range dst {
		top := a[i]*(1-fx) + b[i]*fx
		bottom := c[i]*(1-fx) + d[i]*fx
		dst[i] = top*(1-fy) + bottom*fy
	}
	return Normalize(dst)
}

// ToTensor returns the map as a (1, C, H, W) float64 tensor.
func (m *Map) ToTensor() *tensor.Dense {
	plane := m.height * m.width
	chw := make([]float64, len(m.data))
	for i := 0; i < plane; i++ {
		for c := 0; c < m.channels; c++ {
			chw[c*plane+i] = m.data[i*m.channels+c]
		}
	}
	return tensor.New(tensor.WithShape(1, m.channels, m.height, m.width), tensor.WithBacking(chw))
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
