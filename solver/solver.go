// Package solver estimates a camera pose by correlating a feature map against per-vertex
// descriptors: an exhaustive search over a candidate library followed by local refinement.
package solver

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/sampler"
	"github.com/standardgalactic/neural-mesh/utils"
)

// Solver is safe for concurrent use; the library, bank and projector are only read.
type Solver struct {
	projector render.Projector
	library   *sampler.Library
	bank      *features.Bank
	cfg       Config
	refiner   Refiner
	logger    logging.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithRefiner replaces the default gradient ascent refiner.
func WithRefiner(r Refiner) Option {
	return func(s *Solver) {
		s.refiner = r
	}
}

// New returns a solver over a library projected with projector. The bank must describe
// every mesh vertex.
func New(
	projector render.Projector,
	library *sampler.Library,
	bank *features.Bank,
	cfg Config,
	logger logging.Logger,
	opts ...Option,
) (*Solver, error) {
	if projector == nil || library == nil || bank == nil {
		return nil, errors.New("solver needs a projector, a candidate library and a feature bank")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid solver config")
	}
	if cfg.Aggregation == "" {
		cfg.Aggregation = AggregateSum
	}
	nv := projector.Mesh().NumVertices()
	if library.NumVertices() != nv {
		return nil, features.NewShapeMismatchError("library has %d vertices, mesh has %d", library.NumVertices(), nv)
	}
	if bank.NumVertices() != nv {
		return nil, features.NewShapeMismatchError("bank has %d descriptors, mesh has %d vertices", bank.NumVertices(), nv)
	}
	if library.Degrees() != projector.Degrees() {
		return nil, errors.New("library and projector disagree on angle units")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("solver")
	}
	s := &Solver{
		projector: projector,
		library:   library,
		bank:      bank,
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refiner == nil && cfg.Refine.Iterations > 0 {
		s.refiner = NewGradientAscent(cfg.Refine, logger.Sublogger("refine"))
	}
	return s, nil
}

// Config returns the solver settings.
func (s *Solver) Config() Config {
	return s.cfg
}

// Library returns the candidate library.
func (s *Solver) Library() *sampler.Library {
	return s.library
}

// Projector returns the projector used for refinement.
func (s *Solver) Projector() render.Projector {
	return s.projector
}

func (s *Solver) checkMap(fm *features.Map) error {
	if fm == nil {
		return features.NewShapeMismatchError("nil feature map")
	}
	if fm.Channels() != s.bank.Dim() {
		return features.NewShapeMismatchError("feature map has %d channels, bank dimension is %d", fm.Channels(), s.bank.Dim())
	}
	intrinsics := s.projector.Intrinsics()
	if fm.Height() != intrinsics.Height || fm.Width() != intrinsics.Width {
		return features.NewShapeMismatchError("feature map is %dx%d, camera expects %dx%d",
			fm.Height(), fm.Width(), intrinsics.Height, intrinsics.Width)
	}
	return nil
}

// ScorePose returns the refinement objective at pose.
func (s *Solver) ScorePose(fm *features.Map, pose camera.Pose) (float64, error) {
	obj, err := s.NewObjective(fm, pose.Principal != nil)
	if err != nil {
		return 0, err
	}
	return obj.Evaluate(obj.Params(pose)), nil
}

// Solve predicts the pose for one feature map.
func (s *Solver) Solve(ctx context.Context, fm *features.Map) (*Prediction, error) {
	scores, best, err := s.Coarse(ctx, fm)
	if err != nil {
		return nil, err
	}
	if best < 0 {
		s.logger.Debugw("no candidate has a visible vertex", "candidates", len(scores))
		return noPrediction(), nil
	}
	cand := s.library.At(best)
	s.logger.Debugw("coarse search done", "candidate", best, "score", scores[best], "pose", cand.Pose)

	pred := &Prediction{
		CoarseScore:    scores[best],
		Score:          scores[best],
		CandidateIndex: best,
	}
	pose := cand.Pose.Copy()
	if s.refiner != nil {
		obj, err := s.NewObjective(fm, cand.Pose.Principal != nil)
		if err != nil {
			return nil, err
		}
		x0 := obj.Params(cand.Pose)
		start := obj.Evaluate(x0)
		if !math.IsInf(start, -1) && !math.IsNaN(start) {
			pred.Score = start
		}
		res, err := s.refiner.Refine(ctx, obj, x0)
		if err != nil {
			return nil, errors.Wrap(err, "refining pose")
		}
		// The coarse score samples the nearest pixel, so refinement is judged against the
		// bilinear score of the candidate itself.
		if utils.IsFinite(res.Score) && res.Score > start {
			pose = obj.Pose(res.X)
			pred.Score = res.Score
		}
		pred.Iterations = res.Iterations
		s.logger.Debugw("refinement done", "iterations", res.Iterations, "evaluations", obj.Evaluations(), "score", pred.Score)
	}
	normalized := normalizePose(pose, s.projector.Degrees())
	pred.Pose = &normalized
	return pred, nil
}

// SolveBatch solves independent feature maps in parallel. Predictions are in input order.
func (s *Solver) SolveBatch(ctx context.Context, maps []*features.Map) ([]*Prediction, error) {
	out := make([]*Prediction, len(maps))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(utils.ParallelFactor)
	for i, fm := range maps {
		group.Go(func() error {
			pred, err := s.Solve(gctx, fm)
			if err != nil {
				return errors.Wrapf(err, "feature map %d", i)
			}
			out[i] = pred
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizePose wraps azimuth and theta into one turn and clamps elevation to the poles, in
// the pose's own units.
func normalizePose(pose camera.Pose, degrees bool) camera.Pose {
	if !degrees {
		return pose.Normalized()
	}
	return pose.Radians(true).Normalized().Degrees()
}
