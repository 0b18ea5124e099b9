package features

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Bank is the per-vertex descriptor table plus the aggregate clutter descriptor. All vectors
// are L2 normalized and read-only.
type Bank struct {
	dim     int
	vectors [][]float64
	clutter []float64
}

// NewBank builds a bank from one descriptor per vertex. The clutter descriptor is the
// normalized mean of clutterRows, or the zero vector when there are none.
func NewBank(vertexRows, clutterRows [][]float64) (*Bank, error) {
	if len(vertexRows) == 0 {
		return nil, NewShapeMismatchError("feature bank has no vertex descriptors")
	}
	dim := len(vertexRows[0])
	if dim == 0 {
		return nil, NewShapeMismatchError("feature bank descriptors are empty")
	}
	b := &Bank{dim: dim, vectors: make([][]float64, len(vertexRows)), clutter: make([]float64, dim)}
	for i, row := range vertexRows {
		if len(row) != dim {
			return nil, NewShapeMismatchError("descriptor %d has dimension %d, expected %d", i, len(row), dim)
		}
		b.vectors[i] = Normalized(row)
	}
	for i, row := range clutterRows {
		if len(row) != dim {
			return nil, NewShapeMismatchError("clutter descriptor %d has dimension %d, expected %d", i, len(row), dim)
		}
		for j, v := range row {
			b.clutter[j] += v
		}
	}
	if len(clutterRows) > 0 {
		for j := range b.clutter {
			b.clutter[j] /= float64(len(clutterRows))
		}
		Normalize(b.clutter)
	}
	return b, nil
}

// NewBankFromTensor splits a (K, D) memory tensor whose first numVertices rows are vertex
// descriptors and whose remaining rows are clutter samples.
func NewBankFromTensor(memory *tensor.Dense, numVertices int) (*Bank, error) {
	if memory == nil {
		return nil, errors.New("nil memory tensor")
	}
	shape := memory.Shape()
	if len(shape) != 2 {
		return nil, NewShapeMismatchError("memory tensor must be 2D, got shape %v", shape)
	}
	rows, dim := shape[0], shape[1]
	if numVertices <= 0 || numVertices > rows {
		return nil, NewShapeMismatchError("memory tensor has %d rows, need at least %d", rows, numVertices)
	}
	data, err := float64Data(memory)
	if err != nil {
		return nil, err
	}
	all := make([][]float64, rows)
	for i := range all {
		all[i] = data[i*dim : (i+1)*dim]
	}
	return NewBank(all[:numVertices], all[numVertices:])
}

// Dim returns the descriptor dimensionality.
func (b *Bank) Dim() int {
	return b.dim
}

// NumVertices returns the number of vertex descriptors.
func (b *Bank) NumVertices() int {
	return len(b.vectors)
}

// Vertex returns the descriptor of vertex i. The slice must not be modified.
func (b *Bank) Vertex(i int) []float64 {
	return b.vectors[i]
}

// Clutter returns the clutter descriptor. The slice must not be modified.
func (b *Bank) Clutter() []float64 {
	return b.clutter
}
