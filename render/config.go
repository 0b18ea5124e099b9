package render

import (
	"github.com/pkg/errors"
)

// Kind selects a projector variant.
type Kind string

const (
	// KindHard is the triangle rasterizer with a depth buffer visibility test.
	KindHard Kind = "hard"
	// KindSoft renders vertices as gaussians and reports continuous visibility weights.
	KindSoft Kind = "soft"
)

// DefaultVisibilityThreshold is the depth agreement ε of the hard visibility test.
const DefaultVisibilityThreshold = 1e-3

// DefaultSoftVisibilityThreshold is the transmittance a soft vertex needs to count as visible.
const DefaultSoftVisibilityThreshold = 0.25

// Config configures a projector.
type Config struct {
	Kind Kind `json:"kind"`
	// Degrees marks pose angles as degrees instead of radians.
	Degrees bool `json:"degrees"`
	// VisibilityThreshold is the maximum |sampled depth − vertex depth| of a visible vertex.
	VisibilityThreshold float64 `json:"visibility_threshold"`
	// RestrictToBoundary clamps projected coordinates into the feature map.
	RestrictToBoundary bool `json:"restrict_to_boundary"`
	// BlurRadius grows triangle coverage by this many pixels.
	BlurRadius float64 `json:"blur_radius"`

	// SoftSigma is the gaussian radius in scene units; 0 uses half the mean edge length.
	SoftSigma float64 `json:"soft_sigma"`
	// SoftOpacity is the peak opacity of each gaussian.
	SoftOpacity float64 `json:"soft_opacity"`
	// SoftVisibilityThreshold is the transmittance needed for a soft vertex to be visible.
	SoftVisibilityThreshold float64 `json:"soft_visibility_threshold"`
}

// DefaultConfig returns the hard projector with boundary clamping.
func DefaultConfig() Config {
	return Config{
		Kind:                    KindHard,
		VisibilityThreshold:     DefaultVisibilityThreshold,
		RestrictToBoundary:      true,
		SoftOpacity:             1,
		SoftVisibilityThreshold: DefaultSoftVisibilityThreshold,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	switch cfg.Kind {
	case KindHard, KindSoft:
	default:
		return errors.Errorf("unknown projector kind %q, expected %q or %q", cfg.Kind, KindHard, KindSoft)
	}
	if cfg.VisibilityThreshold <= 0 {
		return errors.Errorf("visibility_threshold must be positive, got %v", cfg.VisibilityThreshold)
	}
	if cfg.BlurRadius < 0 {
		return errors.Errorf("blur_radius must not be negative, got %v", cfg.BlurRadius)
	}
	if cfg.SoftSigma < 0 {
		return errors.Errorf("soft_sigma must not be negative, got %v", cfg.SoftSigma)
	}
	if cfg.SoftOpacity <= 0 || cfg.SoftOpacity > 1 {
		return errors.Errorf("soft_opacity must be in (0, 1], got %v", cfg.SoftOpacity)
	}
	if cfg.SoftVisibilityThreshold < 0 || cfg.SoftVisibilityThreshold >= 1 {
		return errors.Errorf("soft_visibility_threshold must be in [0, 1), got %v", cfg.SoftVisibilityThreshold)
	}
	return nil
}
