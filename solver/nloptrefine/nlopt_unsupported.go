//go:build windows || no_cgo

// Package nloptrefine refines poses with nlopt's SLSQP.
package nloptrefine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/solver"
)

var errUnsupported = errors.New("nlopt refinement requires cgo")

// Refiner is unavailable on this platform.
type Refiner struct{}

// New always fails on this platform.
func New(cfg solver.RefineConfig, logger logging.Logger) (*Refiner, error) {
	return nil, errUnsupported
}

// Refine always fails on this platform.
func (r *Refiner) Refine(ctx context.Context, obj *solver.Objective, x0 []float64) (solver.RefineResult, error) {
	return solver.RefineResult{}, errUnsupported
}
