// Package nemo wires a mesh, its feature bank and a configuration into a pose estimator.
package nemo

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/config"
	"github.com/standardgalactic/neural-mesh/evaluate"
	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/sampler"
	"github.com/standardgalactic/neural-mesh/solver"
	"github.com/standardgalactic/neural-mesh/spatialmath"
	"github.com/standardgalactic/neural-mesh/utils"
)

// Sample is one feature map to solve, optionally with its true pose.
type Sample struct {
	Name        string
	Features    *features.Map
	GroundTruth *camera.Pose
}

// Result is the outcome for one Sample. Error is the rotation distance to the ground truth,
// or MaxError when no pose was found, and is only meaningful with HasGroundTruth.
type Result struct {
	Name           string
	Prediction     *solver.Prediction
	Error          float64
	HasGroundTruth bool
}

// Model holds everything that is built once per mesh: the projector, the candidate library
// and the solver. It is safe for concurrent use.
type Model struct {
	cfg        *config.Config
	intrinsics *camera.Intrinsics
	projector  render.Projector
	library    *sampler.Library
	solver     *solver.Solver
	logger     logging.Logger
}

// New builds a model. The mesh is centered on the origin, which is what the camera looks at.
func New(
	ctx context.Context,
	cfg *config.Config,
	mesh *spatialmath.Mesh,
	bank *features.Bank,
	logger logging.Logger,
	opts ...solver.Option,
) (*Model, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("nemo")
	}
	if mesh == nil {
		return nil, errors.Wrap(spatialmath.ErrInvalidMesh, "nil mesh")
	}
	intrinsics, err := camera.NewIntrinsics(cfg.Camera)
	if err != nil {
		return nil, err
	}
	projector, err := render.NewProjector(mesh.Centered(), intrinsics, cfg.Render)
	if err != nil {
		return nil, err
	}
	library, err := sampler.Build(ctx, projector, cfg.Sampling, sampler.WithLogger(logger.Sublogger("sampler")))
	if err != nil {
		return nil, err
	}
	logger.Infow("candidate library ready",
		"candidates", library.Len(),
		"valid", library.ValidCount(),
		"mean_visible", library.MeanVisible(),
		"duration", library.BuildDuration())

	s, err := solver.New(projector, library, bank, cfg.Solver, logger.Sublogger("solver"), opts...)
	if err != nil {
		return nil, err
	}
	return &Model{
		cfg:        cfg,
		intrinsics: intrinsics,
		projector:  projector,
		library:    library,
		solver:     s,
		logger:     logger,
	}, nil
}

// Config returns the model configuration.
func (m *Model) Config() *config.Config {
	return m.cfg
}

// Intrinsics returns the feature map camera.
func (m *Model) Intrinsics() *camera.Intrinsics {
	return m.intrinsics
}

// Projector returns the projector shared by the library and the solver.
func (m *Model) Projector() render.Projector {
	return m.projector
}

// Library returns the candidate library.
func (m *Model) Library() *sampler.Library {
	return m.library
}

// Solver returns the pose solver.
func (m *Model) Solver() *solver.Solver {
	return m.solver
}

// Evaluate solves one sample and scores the prediction if the sample has a ground truth.
// Ground truth angles use the same unit as the configured projector.
func (m *Model) Evaluate(ctx context.Context, sample Sample) (*Result, error) {
	pred, err := m.solver.Solve(ctx, sample.Features)
	if err != nil {
		return nil, errors.Wrapf(err, "solving %q", sample.Name)
	}
	res := &Result{Name: sample.Name, Prediction: pred, Error: evaluate.MaxError}
	if sample.GroundTruth != nil {
		res.HasGroundTruth = true
		if pred.Pose != nil {
			degrees := m.cfg.Render.Degrees
			predicted, truth := pred.Pose.Radians(degrees), sample.GroundTruth.Radians(degrees)
			res.Error = evaluate.RotationDistance(&predicted, &truth)
		}
	}
	m.logger.Debugw("evaluated sample", "name", sample.Name, "candidate", pred.CandidateIndex,
		"score", pred.Score, "error", res.Error)
	return res, nil
}

// EvaluateBatch evaluates samples in parallel and returns results in input order.
func (m *Model) EvaluateBatch(ctx context.Context, samples []Sample) ([]*Result, error) {
	out := make([]*Result, len(samples))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(utils.ParallelFactor)
	for i, sample := range samples {
		group.Go(func() error {
			res, err := m.Evaluate(gctx, sample)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize aggregates the errors of results that have a ground truth.
func Summarize(results []*Result) evaluate.Summary {
	errs := make([]float64, 0, len(results))
	for _, r := range results {
		if r != nil && r.HasGroundTruth {
			errs = append(errs, r.Error)
		}
	}
	return evaluate.Summarize(errs)
}
