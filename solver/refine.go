package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/standardgalactic/neural-mesh/logging"
)

// FloorScore stands in for −Inf inside optimizers that need finite values.
const FloorScore = -1e9

// RefineResult is the best point a refiner found.
type RefineResult struct {
	X          []float64
	Score      float64
	Iterations int
}

// A Refiner locally maximizes an objective from a starting point. Implementations return the
// best point they evaluated, which is never worse than x0 and always inside the objective's
// bounds.
type Refiner interface {
	Refine(ctx context.Context, obj *Objective, x0 []float64) (RefineResult, error)
}

// GradientAscent climbs the objective with gonum's line search gradient descent on its
// negation, using central difference gradients.
type GradientAscent struct {
	// Iterations bounds the number of gradient evaluations.
	Iterations int
	// LearningRate is how far the most sensitive parameter moves on the first step.
	LearningRate float64
	// Tolerance stops the ascent once an iteration gains less than this.
	Tolerance float64
	Jump      float64

	logger logging.Logger
}

// NewGradientAscent returns the default refiner.
func NewGradientAscent(cfg RefineConfig, logger logging.Logger) *GradientAscent {
	if logger == nil {
		logger = logging.NewBlankLogger("refine")
	}
	return &GradientAscent{
		Iterations:   cfg.Iterations,
		LearningRate: cfg.LearningRate,
		Tolerance:    cfg.Tolerance,
		Jump:         cfg.Jump,
		logger:       logger,
	}
}

// Refine minimizes the negated objective from x0. Points outside the bounds are evaluated at
// their clamped position.
func (g *GradientAscent) Refine(ctx context.Context, obj *Objective, x0 []float64) (RefineResult, error) {
	best := RefineResult{X: obj.Clamp(nil, x0)}
	best.Score = obj.Evaluate(best.X)
	if math.IsInf(best.Score, -1) || math.IsNaN(best.Score) || g.Iterations <= 0 {
		return best, nil
	}
	if err := ctx.Err(); err != nil {
		return best, err
	}

	lower, upper := obj.Bounds()
	clamped := make([]float64, len(x0))
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			obj.Clamp(clamped, x)
			f := obj.Evaluate(clamped)
			if math.IsInf(f, -1) || math.IsNaN(f) {
				return -FloorScore
			}
			if f > best.Score {
				best.Score = f
				copy(best.X, clamped)
			}
			return -f
		},
		Grad: func(grad, x []float64) {
			best.Iterations++
			obj.Clamp(clamped, x)
			obj.Gradient(clamped, g.Jump, grad)
			for i := range grad {
				if x[i] < lower[i] || x[i] > upper[i] {
					grad[i] = 0
					continue
				}
				grad[i] = -grad[i]
			}
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations: g.Iterations,
		GradEvaluations: g.Iterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   g.Tolerance,
			Iterations: 1,
		},
	}
	method := &optimize.GradientDescent{
		StepSizer: &optimize.QuadraticStepSize{InitialStepFactor: g.LearningRate},
	}

	start := append([]float64(nil), best.X...)
	result, err := optimize.Minimize(problem, start, settings, method)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return best, ctxErr
	}
	if err != nil {
		// Line search failures on the piecewise constant visibility are expected; the best
		// point is still valid.
		g.logger.Debugw("gradient ascent stopped", "error", err, "score", best.Score)
		return best, nil
	}
	g.logger.Debugw("gradient ascent done", "status", result.Status.String(),
		"evaluations", result.FuncEvaluations, "score", best.Score)
	return best, nil
}
