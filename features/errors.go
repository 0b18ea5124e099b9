package features

import "github.com/pkg/errors"

// ErrShapeMismatch is returned when feature maps, banks and projector configuration disagree
// on dimensionality.
var ErrShapeMismatch = errors.New("shape mismatch")

// NewShapeMismatchError wraps ErrShapeMismatch with detail.
func NewShapeMismatchError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}
