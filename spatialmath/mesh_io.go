package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// maxElements bounds the vertex and face counts a mesh file header may declare.
const maxElements = 1 << 22

// degenerateArea is the triangle area below which loaded faces are dropped.
const degenerateArea = 1e-12

// NewMeshFromFile loads a mesh from an .off or .ply file.
func NewMeshFromFile(path string) (*Mesh, error) {
	//nolint:gosec
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(file.Close)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".off":
		return NewMeshFromOFF(file)
	case ".ply":
		return NewMeshFromPLY(file)
	default:
		return nil, errors.Errorf("unsupported mesh file extension %q", ext)
	}
}

// NewMeshFromOFF parses an ASCII Object File Format mesh. Polygon faces with more than
// three corners are fan triangulated.
func NewMeshFromOFF(r io.Reader) (*Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var tokens []string
	nextLine := func() ([]string, error) {
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			if fields := strings.Fields(line); len(fields) > 0 {
				return fields, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}

	header, err := nextLine()
	if err != nil {
		return nil, newInvalidMeshError("reading OFF header: %v", err)
	}
	if !strings.HasSuffix(header[0], "OFF") {
		return nil, newInvalidMeshError("missing OFF header, got %q", header[0])
	}
	// Counts may share the header line.
	tokens = header[1:]
	if len(tokens) == 0 {
		if tokens, err = nextLine(); err != nil {
			return nil, newInvalidMeshError("reading OFF counts: %v", err)
		}
	}
	if len(tokens) < 2 {
		return nil, newInvalidMeshError("malformed OFF counts %v", tokens)
	}
	numVerts, err1 := strconv.Atoi(tokens[0])
	numFaces, err2 := strconv.Atoi(tokens[1])
	if err1 != nil || err2 != nil || numVerts < 0 || numFaces < 0 {
		return nil, newInvalidMeshError("malformed OFF counts %v", tokens)
	}
	if numVerts > maxElements || numFaces > maxElements {
		return nil, newInvalidMeshError("OFF counts %d and %d exceed the limit of %d", numVerts, numFaces, maxElements)
	}

	// The counts are not trusted for allocation; a short file fails on the first missing line.
	var vertices []r3.Vector
	for i := 0; i < numVerts; i++ {
		fields, err := nextLine()
		if err != nil {
			return nil, newInvalidMeshError("reading vertex %d: %v", i, err)
		}
		v, err := parseVector(fields)
		if err != nil {
			return nil, newInvalidMeshError("vertex %d: %v", i, err)
		}
		vertices = append(vertices, v)
	}

	var faces [][3]int
	for i := 0; i < numFaces; i++ {
		fields, err := nextLine()
		if err != nil {
			return nil, newInvalidMeshError("reading face %d: %v", i, err)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 3 || len(fields) < n+1 {
			return nil, newInvalidMeshError("malformed face %d: %v", i, fields)
		}
		idx := make([]int, n)
		for j := range idx {
			if idx[j], err = strconv.Atoi(fields[j+1]); err != nil {
				return nil, newInvalidMeshError("face %d: %v", i, err)
			}
		}
		faces = appendFan(faces, idx)
	}
	return newLoadedMesh(vertices, faces)
}

// appendFan fan triangulates a polygon around its first corner.
func appendFan(faces [][3]int, idx []int) [][3]int {
	for j := 1; j+1 < len(idx); j++ {
		faces = append(faces, [3]int{idx[0], idx[j], idx[j+1]})
	}
	return faces
}

// newLoadedMesh builds a mesh from file data, dropping faces with no area.
func newLoadedMesh(vertices []r3.Vector, faces [][3]int) (*Mesh, error) {
	kept := faces[:0]
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, newInvalidMeshError("face %d references vertex %d of %d", i, idx, len(vertices))
			}
		}
		if NewTriangle(vertices[f[0]], vertices[f[1]], vertices[f[2]]).Area() < degenerateArea {
			continue
		}
		kept = append(kept, f)
	}
	return NewMesh(vertices, kept)
}

func parseVector(fields []string) (r3.Vector, error) {
	if len(fields) < 3 {
		return r3.Vector{}, errors.Errorf("need 3 coordinates, got %d", len(fields))
	}
	var xyz [3]float64
	for i := range xyz {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vector{}, err
		}
		xyz[i] = f
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// NewMeshFromPLY parses a PLY mesh with "vertex" (x, y, z) and "face" (vertex_indices)
// elements.
func NewMeshFromPLY(r io.Reader) (mesh *Mesh, err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			mesh, err = nil, newInvalidMeshError("malformed PLY: %v", thePanic)
		}
	}()
	header, err := readPLYHeader(r)
	if err != nil {
		return nil, err
	}
	ply := goply.New(header)

	plyVertices := ply.Elements("vertex")
	vertices := make([]r3.Vector, 0, len(plyVertices))
	for i, vertex := range plyVertices {
		var xyz [3]float64
		for j, key := range []string{"x", "y", "z"} {
			val, err := plyNumber(vertex[key])
			if err != nil {
				return nil, newInvalidMeshError("vertex %d property %q: %v", i, key, err)
			}
			xyz[j] = val
		}
		vertices = append(vertices, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}

	var faces [][3]int
	for i, face := range ply.Elements("face") {
		raw, ok := face["vertex_indices"]
		if !ok {
			raw = face["vertex_index"]
		}
		idx, err := plyIndices(raw)
		if err != nil || len(idx) < 3 {
			return nil, newInvalidMeshError("face %d: malformed vertex indices %v", i, raw)
		}
		faces = appendFan(faces, idx)
	}
	return newLoadedMesh(vertices, faces)
}

// readPLYHeader consumes the header up to end_header and checks its element counts, since
// the body parser allocates them up front. The returned reader replays the header and the
// rest of r.
func readPLYHeader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	var header strings.Builder
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		header.WriteString(line)
		fields := strings.Fields(line)
		if len(fields) > 0 {
			switch fields[0] {
			case "end_header":
				return io.MultiReader(strings.NewReader(header.String()), br), nil
			case "element":
				if len(fields) < 3 {
					return nil, newInvalidMeshError("malformed PLY element %v", fields)
				}
				count, err := strconv.Atoi(fields[2])
				if err != nil || count < 0 || count > maxElements {
					return nil, newInvalidMeshError("PLY element %q has invalid count %q", fields[1], fields[2])
				}
			}
		}
		if err != nil {
			return nil, newInvalidMeshError("PLY header is truncated")
		}
	}
}
