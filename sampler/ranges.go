// Package sampler enumerates the candidate camera poses searched by the coarse stage and
// precomputes their projections.
package sampler

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/standardgalactic/neural-mesh/utils"
)

// AxisRange samples one pose parameter at Steps evenly spaced values from Min. With Endpoint
// set the last value is Max, otherwise [Min, Max) is divided evenly.
type AxisRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Steps    int     `json:"steps"`
	Endpoint bool    `json:"endpoint,omitempty"`
}

// Fixed is a single valued axis.
func Fixed(v float64) AxisRange {
	return AxisRange{Min: v, Max: v, Steps: 1, Endpoint: true}
}

// Values returns the sampled values in increasing order of index.
func (r AxisRange) Values() []float64 {
	return utils.Linspace(r.Min, r.Max, r.Steps, r.Endpoint)
}

func (r AxisRange) validate(name string) error {
	if r.Steps < 1 {
		return errors.Errorf("%s: steps must be at least 1, got %d", name, r.Steps)
	}
	if !utils.IsFinite(r.Min, r.Max) {
		return errors.Errorf("%s: non-finite range [%v, %v]", name, r.Min, r.Max)
	}
	return nil
}

// Ranges is the grid of candidate poses. Angles use the projector's unit. PrincipalOffsets,
// when non-empty, are added in image pixels to the default principal point to form an extra
// axis. An empty list keeps the default principal point.
type Ranges struct {
	Azimuth          AxisRange  `json:"azimuth"`
	Elevation        AxisRange  `json:"elevation"`
	Theta            AxisRange  `json:"theta"`
	Distance         AxisRange  `json:"distance"`
	PrincipalOffsets []r2.Point `json:"principal_offsets,omitempty"`
}

// DefaultRanges returns the standard search grid in radians: 12 azimuths over a full turn,
// 4 elevations over [−π/6, π/3], 3 in-plane rotations over [−π/6, π/6] at distance 5.
func DefaultRanges() Ranges {
	return Ranges{
		Azimuth:   AxisRange{Min: 0, Max: 2 * math.Pi, Steps: 12},
		Elevation: AxisRange{Min: -math.Pi / 6, Max: math.Pi / 3, Steps: 4, Endpoint: true},
		Theta:     AxisRange{Min: -math.Pi / 6, Max: math.Pi / 6, Steps: 3, Endpoint: true},
		Distance:  Fixed(5),
	}
}

// Validate checks every axis.
func (r Ranges) Validate() error {
	err := multierr.Combine(
		r.Azimuth.validate("azimuth"),
		r.Elevation.validate("elevation"),
		r.Theta.validate("theta"),
		r.Distance.validate("distance"),
	)
	for _, d := range r.Distance.Values() {
		if d <= 0 {
			err = multierr.Append(err, errors.Errorf("distance: values must be positive, got %v", d))
			break
		}
	}
	for i, off := range r.PrincipalOffsets {
		if !utils.IsFinite(off.X, off.Y) {
			err = multierr.Append(err, errors.Errorf("principal offset %d is not finite", i))
		}
	}
	return err
}

// Dims returns the axis sizes in enumeration order: azimuth, elevation, theta, distance and
// principal point.
func (r Ranges) Dims() []int {
	pp := len(r.PrincipalOffsets)
	if pp == 0 {
		pp = 1
	}
	return []int{r.Azimuth.Steps, r.Elevation.Steps, r.Theta.Steps, r.Distance.Steps, pp}
}

// Size returns the number of candidates in the grid.
func (r Ranges) Size() int {
	return utils.GridSize(r.Dims())
}
