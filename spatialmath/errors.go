package spatialmath

import "github.com/pkg/errors"

// ErrInvalidMesh is returned for empty or malformed vertex/face arrays.
var ErrInvalidMesh = errors.New("invalid mesh")

func newInvalidMeshError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidMesh, format, args...)
}
