package camera

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidPose is returned for non-finite or out-of-domain pose parameters and for
	// camera geometry that cannot be inverted.
	ErrInvalidPose = errors.New("invalid pose")

	// ErrNoIntrinsics is when the camera intrinsics are missing or unusable.
	ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")
)

// NewInvalidPoseError wraps ErrInvalidPose with detail.
func NewInvalidPoseError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidPose, format, args...)
}

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}
