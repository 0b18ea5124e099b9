package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/sampler"
	"github.com/standardgalactic/neural-mesh/spatialmath"
)

func testIntrinsics() *camera.Intrinsics {
	return &camera.Intrinsics{Width: 64, Height: 64, Fx: 60, Fy: 60, Ppx: 32, Ppy: 32, DownSampleRate: 1}
}

func testProjector(t *testing.T, degrees bool) render.Projector {
	t.Helper()
	cube, err := spatialmath.NewBoxMesh(r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	cfg := render.DefaultConfig()
	cfg.VisibilityThreshold = 0.1
	cfg.BlurRadius = 1
	cfg.Degrees = degrees
	proj, err := render.NewProjector(cube, testIntrinsics(), cfg)
	test.That(t, err, test.ShouldBeNil)
	return proj
}

func oneHotBank(t *testing.T, n, dim int, clutter [][]float64) *features.Bank {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, dim)
		rows[i][i] = 1
	}
	bank, err := features.NewBank(rows, clutter)
	test.That(t, err, test.ShouldBeNil)
	return bank
}

func testRanges() sampler.Ranges {
	return sampler.Ranges{
		Azimuth:   sampler.AxisRange{Min: 0, Max: 2 * math.Pi, Steps: 4},
		Elevation: sampler.AxisRange{Min: -math.Pi / 6, Max: math.Pi / 3, Steps: 4, Endpoint: true},
		Theta:     sampler.Fixed(0),
		Distance:  sampler.Fixed(5),
	}
}

// sparseMap places each visible vertex's descriptor at the pixel it projects to under pose
// and leaves every other pixel empty.
func sparseMap(t *testing.T, proj render.Projector, bank *features.Bank, pose camera.Pose) *features.Map {
	t.Helper()
	p, err := proj.ProjectPose(pose)
	test.That(t, err, test.ShouldBeNil)
	intrinsics := proj.Intrinsics()
	canvas := features.NewCanvas(bank.Dim(), intrinsics.Height, intrinsics.Width)
	for _, i := range p.VisibleIndices() {
		r, c := p.Coords[i].Floor()
		canvas.Set(r, c, bank.Vertex(i))
	}
	m, err := canvas.Map()
	test.That(t, err, test.ShouldBeNil)
	return m
}

func newTestSolver(t *testing.T, cfg Config, opts ...Option) (*Solver, *features.Bank) {
	t.Helper()
	proj := testProjector(t, false)
	lib, err := sampler.Build(context.Background(), proj, testRanges())
	test.That(t, err, test.ShouldBeNil)
	bank := oneHotBank(t, 8, 8, nil)
	s, err := New(proj, lib, bank, cfg, logging.NewTestLogger(t), opts...)
	test.That(t, err, test.ShouldBeNil)
	return s, bank
}

func noRefine() Config {
	cfg := DefaultConfig()
	cfg.Refine.Iterations = 0
	return cfg
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	return math.Min(d, 2*math.Pi-d)
}

func TestCoarseFindsCandidate(t *testing.T) {
	s, bank := newTestSolver(t, noRefine())
	lib := s.Library()
	test.That(t, lib.Len(), test.ShouldEqual, 16)
	for k := 0; k < lib.Len(); k++ {
		cand := lib.At(k)
		fm := sparseMap(t, s.Projector(), bank, cand.Pose)
		scores, best, err := s.Coarse(context.Background(), fm)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, best, test.ShouldEqual, k)
		test.That(t, scores[k], test.ShouldAlmostEqual, float64(cand.Projection.NumVisible()))
		for j, v := range scores {
			if j != k {
				test.That(t, v, test.ShouldBeLessThan, scores[k])
			}
		}

		pred, err := s.Solve(context.Background(), fm)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pred.Found(), test.ShouldBeTrue)
		test.That(t, pred.CandidateIndex, test.ShouldEqual, k)
		test.That(t, pred.Score, test.ShouldEqual, pred.CoarseScore)
		test.That(t, angleDiff(pred.Pose.Azimuth, cand.Pose.Azimuth), test.ShouldBeLessThan, 1e-9)
		test.That(t, pred.Pose.Elevation, test.ShouldAlmostEqual, cand.Pose.Elevation)
	}
}

func TestMeanAggregation(t *testing.T) {
	cfg := noRefine()
	cfg.Aggregation = AggregateMean
	s, bank := newTestSolver(t, cfg)
	cand := s.Library().At(6)
	scores, best, err := s.Coarse(context.Background(), sparseMap(t, s.Projector(), bank, cand.Pose))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, best, test.ShouldEqual, 6)
	test.That(t, scores[6], test.ShouldAlmostEqual, 1.0)
}

func TestScorerWeightsAndClutter(t *testing.T) {
	bank := oneHotBank(t, 2, 3, [][]float64{{0, 0, 1}, {0, 0, 3}})
	canvas := features.NewCanvas(3, 4, 4)
	canvas.Set(1, 1, []float64{1, 0, 1})
	canvas.Set(2, 3, []float64{0, 1, 0})
	fm, err := canvas.Map()
	test.That(t, err, test.ShouldBeNil)

	proj := &render.Projection{
		Coords:  []camera.Coord{{Row: 1.2, Col: 1.9}, {Row: 2, Col: 3}},
		Visible: []bool{true, true},
		Weights: []float64{1, 0.5},
	}
	cfg := DefaultConfig()
	sc := newScorer(fm, bank, cfg, sampleNearest)
	test.That(t, sc.score(proj), test.ShouldAlmostEqual, math.Sqrt(0.5)+0.5)

	cfg.ClutterWeight = 1
	sc = newScorer(fm, bank, cfg, sampleNearest)
	test.That(t, sc.score(proj), test.ShouldAlmostEqual, 0.5)

	cfg.Aggregation = AggregateMean
	sc = newScorer(fm, bank, cfg, sampleNearest)
	test.That(t, sc.score(proj), test.ShouldAlmostEqual, 0.25)

	proj.Visible = []bool{false, false}
	test.That(t, math.IsInf(sc.score(proj), -1), test.ShouldBeTrue)
}

func TestTieBreakLowestIndex(t *testing.T) {
	proj := testProjector(t, false)
	poses := []camera.Pose{{Distance: 0}, {Azimuth: 1, Distance: 5}, {Distance: 5}}
	lib, err := sampler.NewLibraryFromPoses(context.Background(), proj, poses)
	test.That(t, err, test.ShouldBeNil)
	bank := oneHotBank(t, 8, 8, nil)
	s, err := New(proj, lib, bank, noRefine(), nil)
	test.That(t, err, test.ShouldBeNil)

	empty, err := features.NewCanvas(8, 64, 64).Map()
	test.That(t, err, test.ShouldBeNil)
	scores, best, err := s.Coarse(context.Background(), empty)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsInf(scores[0], -1), test.ShouldBeTrue)
	test.That(t, scores[1], test.ShouldEqual, 0.0)
	test.That(t, scores[2], test.ShouldEqual, 0.0)
	test.That(t, best, test.ShouldEqual, 1)
}

func TestNoVisibleVertices(t *testing.T) {
	proj := testProjector(t, false)
	far := &r2.Point{X: 1e5, Y: 1e5}
	poses := []camera.Pose{{Distance: 5, Principal: far}, {Azimuth: 2, Distance: 5, Principal: far}}
	lib, err := sampler.NewLibraryFromPoses(context.Background(), proj, poses)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lib.ValidCount(), test.ShouldEqual, 2)
	bank := oneHotBank(t, 8, 8, nil)
	s, err := New(proj, lib, bank, DefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	fm := sparseMap(t, proj, bank, camera.Pose{Distance: 5})
	pred, err := s.Solve(context.Background(), fm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.Found(), test.ShouldBeFalse)
	test.That(t, pred.Pose, test.ShouldBeNil)
	test.That(t, pred.CandidateIndex, test.ShouldEqual, -1)
	test.That(t, math.IsInf(pred.Score, -1), test.ShouldBeTrue)
	test.That(t, pred.String(), test.ShouldEqual, "no prediction")
}

func TestShapeMismatch(t *testing.T) {
	s, _ := newTestSolver(t, noRefine())

	wrongChannels, err := features.NewCanvas(4, 64, 64).Map()
	test.That(t, err, test.ShouldBeNil)
	_, err = s.Solve(context.Background(), wrongChannels)
	test.That(t, errors.Is(err, features.ErrShapeMismatch), test.ShouldBeTrue)

	wrongSize, err := features.NewCanvas(8, 32, 64).Map()
	test.That(t, err, test.ShouldBeNil)
	_, err = s.Solve(context.Background(), wrongSize)
	test.That(t, errors.Is(err, features.ErrShapeMismatch), test.ShouldBeTrue)

	_, err = New(s.Projector(), s.Library(), oneHotBank(t, 6, 8, nil), noRefine(), nil)
	test.That(t, errors.Is(err, features.ErrShapeMismatch), test.ShouldBeTrue)

	sphere, err := spatialmath.NewUVSphereMesh(1, 4, 6)
	test.That(t, err, test.ShouldBeNil)
	other, err := render.NewProjector(sphere, testIntrinsics(), render.DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	_, err = New(other, s.Library(), oneHotBank(t, sphere.NumVertices(), sphere.NumVertices(), nil), noRefine(), nil)
	test.That(t, errors.Is(err, features.ErrShapeMismatch), test.ShouldBeTrue)

	bad := DefaultConfig()
	bad.Aggregation = "max"
	_, err = New(s.Projector(), s.Library(), oneHotBank(t, 8, 8, nil), bad, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRefinementNeverWorse(t *testing.T) {
	s, bank := newTestSolver(t, DefaultConfig())
	cand := s.Library().At(9)
	fm := sparseMap(t, s.Projector(), bank, cand.Pose)
	pred, err := s.Solve(context.Background(), fm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.CandidateIndex, test.ShouldEqual, 9)
	test.That(t, pred.Iterations, test.ShouldBeGreaterThanOrEqualTo, 1)

	start, err := s.ScorePose(fm, cand.Pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.Score, test.ShouldBeGreaterThanOrEqualTo, start)
	refined, err := s.ScorePose(fm, *pred.Pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined, test.ShouldAlmostEqual, pred.Score)
}

// worseRefiner reports a point below its start with a score that the sampler disagrees with.
type worseRefiner struct{}

func (worseRefiner) Refine(ctx context.Context, obj *Objective, x0 []float64) (RefineResult, error) {
	x := append([]float64(nil), x0...)
	x[ParamAzimuth] += math.Pi
	return RefineResult{X: x, Score: obj.Evaluate(x), Iterations: 1}, nil
}

func TestSolveScoresUnderOneSampler(t *testing.T) {
	s, bank := newTestSolver(t, DefaultConfig(), WithRefiner(worseRefiner{}))
	cand := s.Library().At(9)
	fm := sparseMap(t, s.Projector(), bank, cand.Pose)
	pred, err := s.Solve(context.Background(), fm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.CandidateIndex, test.ShouldEqual, 9)

	start, err := s.ScorePose(fm, cand.Pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.Score, test.ShouldEqual, start)
	test.That(t, pred.CoarseScore, test.ShouldAlmostEqual, float64(cand.Projection.NumVisible()))
	test.That(t, angleDiff(pred.Pose.Azimuth, cand.Pose.Azimuth), test.ShouldBeLessThan, 1e-9)
	test.That(t, pred.Pose.Elevation, test.ShouldAlmostEqual, cand.Pose.Elevation)
}

func TestGradientAscentRespectsBounds(t *testing.T) {
	s, bank := newTestSolver(t, noRefine())
	front := camera.Pose{Distance: 5, Principal: &r2.Point{X: 32, Y: 32}}
	canvas, err := render.RenderFeatures(s.Projector(), bank, front)
	test.That(t, err, test.ShouldBeNil)
	fm, err := canvas.Map()
	test.That(t, err, test.ShouldBeNil)
	obj, err := s.NewObjective(fm, true)
	test.That(t, err, test.ShouldBeNil)

	outside := obj.Params(camera.Pose{Distance: 5, Principal: &r2.Point{X: 90, Y: -10}})
	clamped := obj.Clamp(nil, outside)
	test.That(t, clamped[ParamPrincipalX], test.ShouldEqual, 64.0)
	test.That(t, clamped[ParamPrincipalY], test.ShouldEqual, 0.0)
	test.That(t, outside[ParamPrincipalX], test.ShouldEqual, 90.0)

	cfg := DefaultConfig().Refine
	cfg.Iterations = 20
	cfg.LearningRate = 4
	res, err := NewGradientAscent(cfg, nil).Refine(context.Background(), obj, outside)
	test.That(t, err, test.ShouldBeNil)
	lower, upper := obj.Bounds()
	for i, v := range res.X {
		test.That(t, v, test.ShouldBeBetweenOrEqual, lower[i], upper[i])
	}
	test.That(t, res.Score, test.ShouldBeGreaterThanOrEqualTo, obj.Evaluate(clamped))
	test.That(t, obj.Evaluate(res.X), test.ShouldEqual, res.Score)
}

func TestGradientAscentSmoothObjective(t *testing.T) {
	s, bank := newTestSolver(t, DefaultConfig())
	truth := camera.Pose{Azimuth: 0.3, Elevation: 0.2, Distance: 5}
	canvas, err := render.RenderFeatures(s.Projector(), bank, truth)
	test.That(t, err, test.ShouldBeNil)
	fm, err := canvas.Map()
	test.That(t, err, test.ShouldBeNil)

	obj, err := s.NewObjective(fm, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.Dim(), test.ShouldEqual, 4)
	x0 := obj.Params(camera.Pose{Azimuth: 0.2, Elevation: 0.25, Distance: 5.2})
	startScore := obj.Evaluate(x0)

	cfg := DefaultConfig().Refine
	cfg.Iterations = 40
	cfg.LearningRate = 0.02
	res, err := NewGradientAscent(cfg, logging.NewTestLogger(t)).Refine(context.Background(), obj, x0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Score, test.ShouldBeGreaterThanOrEqualTo, startScore)
	test.That(t, res.Iterations, test.ShouldBeBetweenOrEqual, 1, 40)
	test.That(t, obj.Evaluate(res.X), test.ShouldEqual, res.Score)
	test.That(t, obj.Evaluations(), test.ShouldBeGreaterThan, res.Iterations)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewGradientAscent(cfg, nil).Refine(ctx, obj, x0)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestObjectiveFollowsVisibility(t *testing.T) {
	s, bank := newTestSolver(t, noRefine())
	front := camera.Pose{Distance: 5}
	fm := sparseMap(t, s.Projector(), bank, front)
	obj, err := s.NewObjective(fm, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.Dim(), test.ShouldEqual, 6)

	atFront := obj.Evaluate(obj.Params(front))
	behind := obj.Evaluate(obj.Params(camera.Pose{Azimuth: math.Pi, Distance: 5}))
	test.That(t, atFront, test.ShouldAlmostEqual, 4.0)
	test.That(t, behind, test.ShouldBeLessThan, atFront)
	test.That(t, math.IsInf(obj.Evaluate([]float64{0, 0, 0, -1, 32, 32}), -1), test.ShouldBeTrue)

	lower, upper := obj.Bounds()
	test.That(t, lower, test.ShouldHaveLength, 6)
	test.That(t, upper[ParamPrincipalX], test.ShouldEqual, 64.0)
}

func TestObjectiveDegreesRoundTrip(t *testing.T) {
	proj := testProjector(t, true)
	lib, err := sampler.NewLibraryFromPoses(context.Background(), proj, []camera.Pose{{Azimuth: 30, Elevation: 10, Distance: 5}})
	test.That(t, err, test.ShouldBeNil)
	bank := oneHotBank(t, 8, 8, nil)
	s, err := New(proj, lib, bank, DefaultConfig(), nil)
	test.That(t, err, test.ShouldBeNil)

	fm := sparseMap(t, proj, bank, lib.At(0).Pose)
	obj, err := s.NewObjective(fm, true)
	test.That(t, err, test.ShouldBeNil)
	pose := camera.Pose{Azimuth: 30, Elevation: 10, Theta: -5, Distance: 5, Principal: &r2.Point{X: 40, Y: 20}}
	x := obj.Params(pose)
	test.That(t, x[ParamAzimuth], test.ShouldAlmostEqual, math.Pi/6)
	test.That(t, x[ParamPrincipalX], test.ShouldEqual, 40.0)
	back := obj.Pose(x)
	test.That(t, back.Azimuth, test.ShouldAlmostEqual, 30.0)
	test.That(t, back.Theta, test.ShouldAlmostEqual, -5.0)
	test.That(t, *back.Principal, test.ShouldResemble, r2.Point{X: 40, Y: 20})

	pred, err := s.Solve(context.Background(), fm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.Pose.Azimuth, test.ShouldBeBetweenOrEqual, 0.0, 360.0)
	test.That(t, pred.Pose.Theta, test.ShouldBeBetweenOrEqual, 0.0, 360.0)
}

func TestSolveDeterministicAndBatch(t *testing.T) {
	s, bank := newTestSolver(t, DefaultConfig())
	maps := []*features.Map{
		sparseMap(t, s.Projector(), bank, s.Library().At(3).Pose),
		sparseMap(t, s.Projector(), bank, s.Library().At(12).Pose),
	}
	a, err := s.Solve(context.Background(), maps[0])
	test.That(t, err, test.ShouldBeNil)
	b, err := s.Solve(context.Background(), maps[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Diff(a, b), test.ShouldBeEmpty)

	preds, err := s.SolveBatch(context.Background(), maps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, 2)
	test.That(t, preds[0].CandidateIndex, test.ShouldEqual, 3)
	test.That(t, preds[1].CandidateIndex, test.ShouldEqual, 12)
	test.That(t, cmp.Diff(preds[0], a), test.ShouldBeEmpty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, maps[0])
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	_, err = s.SolveBatch(ctx, maps)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)
	cfg := DefaultConfig()
	cfg.ClutterWeight = -1
	cfg.Refine.LearningRate = 0
	cfg.Refine.Jump = math.NaN()
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "clutter_weight")
	test.That(t, err.Error(), test.ShouldContainSubstring, "learning_rate")
	test.That(t, err.Error(), test.ShouldContainSubstring, "jump")
}
