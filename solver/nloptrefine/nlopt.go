//go:build !windows && !no_cgo

// Package nloptrefine refines poses with nlopt's SLSQP.
package nloptrefine

import (
	"context"
	"math"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/solver"
)

// Refiner maximizes the pose objective with SLSQP on central difference gradients.
type Refiner struct {
	maxEval int
	epsilon float64
	jump    float64
	logger  logging.Logger
}

// New returns a refiner bounded to cfg.Iterations gradient evaluations.
func New(cfg solver.RefineConfig, logger logging.Logger) (*Refiner, error) {
	if cfg.Iterations <= 0 {
		return nil, errors.New("nlopt refiner needs a positive iteration budget")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("nlopt")
	}
	eps := cfg.Tolerance
	if eps <= 0 {
		eps = 1e-6
	}
	return &Refiner{maxEval: cfg.Iterations, epsilon: eps, jump: cfg.Jump, logger: logger}, nil
}

// Refine runs SLSQP from x0 and returns the best point evaluated.
func (r *Refiner) Refine(ctx context.Context, obj *solver.Objective, x0 []float64) (solver.RefineResult, error) {
	best := solver.RefineResult{X: append([]float64(nil), x0...), Score: obj.Evaluate(x0)}
	if math.IsInf(best.Score, -1) || math.IsNaN(best.Score) {
		return best, nil
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(obj.Dim()))
	defer opt.Destroy()
	if err != nil {
		return best, errors.Wrap(err, "nlopt creation error")
	}

	// gradient aliases C memory and is written in place.
	nloptMaxFunc := func(x, gradient []float64) float64 {
		if ctx.Err() != nil {
			if err := opt.ForceStop(); err != nil {
				r.logger.Errorw("forcestop error", "error", err)
			}
			return solver.FloorScore
		}
		best.Iterations++
		f := obj.Evaluate(x)
		if math.IsInf(f, -1) || math.IsNaN(f) {
			for i := range gradient {
				gradient[i] = 0
			}
			return solver.FloorScore
		}
		if f > best.Score {
			best.Score = f
			copy(best.X, x)
		}
		if len(gradient) > 0 {
			obj.Gradient(x, r.jump, gradient)
		}
		return f
	}

	lower, upper := obj.Bounds()
	err = multierr.Combine(
		opt.SetFtolRel(r.epsilon),
		opt.SetFtolAbs(r.epsilon),
		opt.SetLowerBounds(lower),
		opt.SetUpperBounds(upper),
		opt.SetXtolRel(r.epsilon),
		opt.SetMaxObjective(nloptMaxFunc),
		opt.SetMaxEval(r.maxEval),
	)
	if err != nil {
		return best, err
	}

	start := append([]float64(nil), x0...)
	for i := range start {
		start[i] = math.Max(lower[i], math.Min(upper[i], start[i]))
	}
	_, _, nloptErr := opt.Optimize(start)
	if ctx.Err() != nil {
		return best, multierr.Combine(nloptErr, ctx.Err())
	}
	if nloptErr != nil {
		// SLSQP reports roundoff and evaluation limits as errors; the best point is still valid.
		r.logger.Debugw("nlopt stopped", "error", nloptErr, "evaluations", best.Iterations)
	}
	return best, nil
}
