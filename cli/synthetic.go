package cli

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/config"
	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/nemo"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/solver"
	"github.com/standardgalactic/neural-mesh/solver/nloptrefine"
	"github.com/standardgalactic/neural-mesh/utils"
)

// clutterSamples is the number of random clutter rows in a synthetic bank.
const clutterSamples = 4

// SyntheticAction benchmarks the solver on feature maps rendered from random poses.
func SyntheticAction(c *cli.Context) error {
	cfg := configFromContext(c)
	logger := loggerFromContext(c)
	seed := uint64(c.Int64(seedFlag))
	src := rand.NewPCG(seed, seed)

	mesh, err := loadMesh(c.String(meshFlag))
	if err != nil {
		return err
	}
	bank, err := randomBank(src, mesh.NumVertices(), c.Int(dimFlag))
	if err != nil {
		return err
	}

	var opts []solver.Option
	switch c.String(refinerFlag) {
	case refinerGradient:
	case refinerNlopt:
		r, err := nloptrefine.New(cfg.Solver.Refine, logger.Sublogger("nlopt"))
		if err != nil {
			return err
		}
		opts = append(opts, solver.WithRefiner(r))
	default:
		return errors.Errorf("unknown refiner %q", c.String(refinerFlag))
	}

	model, err := nemo.New(c.Context, cfg, mesh, bank, logger, opts...)
	if err != nil {
		return err
	}

	n := c.Int(samplesFlag)
	samples := make([]nemo.Sample, n)
	for i := range samples {
		truth := randomPose(src, cfg)
		fm, err := syntheticFeatures(model.Projector(), bank, truth, c.Float64(noiseFlag), src)
		if err != nil {
			return err
		}
		samples[i] = nemo.Sample{Name: fmt.Sprintf("synthetic_%03d", i), Features: fm, GroundTruth: &truth}
	}

	results, err := model.EvaluateBatch(c.Context, samples)
	if err != nil {
		return err
	}
	summary := nemo.Summarize(results)
	printf(c, "%s", summary.Table())

	errsDeg := make([]float64, 0, len(results))
	for _, r := range results {
		errsDeg = append(errsDeg, utils.RadToDeg(r.Error))
	}
	if lo, hi := minmax(errsDeg); hi > lo {
		if err := histogram.Fprint(c.App.Writer, histogram.Hist(9, errsDeg), histogram.Linear(40)); err != nil {
			return err
		}
	}
	if path := c.Path(plotFlag); path != "" && len(errsDeg) > 0 {
		if err := plotErrors(errsDeg, path); err != nil {
			return err
		}
		printf(c, "wrote error histogram to %s", path)
	}
	return nil
}

// randomBank draws unit descriptors for every vertex and a few clutter rows.
func randomBank(src rand.Source, numVertices, dim int) (*features.Bank, error) {
	if dim <= 0 {
		return nil, errors.Errorf("descriptor dimension must be positive, got %d", dim)
	}
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	row := func() []float64 {
		v := make([]float64, dim)
		for i := range v {
			v[i] = normal.Rand()
		}
		return v
	}
	vertices := make([][]float64, numVertices)
	for i := range vertices {
		vertices[i] = row()
	}
	clutter := make([][]float64, clutterSamples)
	for i := range clutter {
		clutter[i] = row()
	}
	return features.NewBank(vertices, clutter)
}

// randomPose draws a pose uniformly inside the configured sampling ranges.
func randomPose(src rand.Source, cfg *config.Config) camera.Pose {
	uniform := func(lo, hi float64) float64 {
		if hi <= lo {
			return lo
		}
		return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
	}
	s := cfg.Sampling
	return camera.Pose{
		Azimuth:   uniform(s.Azimuth.Min, s.Azimuth.Max),
		Elevation: uniform(s.Elevation.Min, s.Elevation.Max),
		Theta:     uniform(s.Theta.Min, s.Theta.Max),
		Distance:  uniform(s.Distance.Min, s.Distance.Max),
	}
}

// syntheticFeatures renders the feature map an ideal backbone would produce, adds noise and
// round trips it through the backbone's tensor layout.
func syntheticFeatures(
	projector render.Projector,
	bank *features.Bank,
	pose camera.Pose,
	noise float64,
	src rand.Source,
) (*features.Map, error) {
	canvas, err := render.RenderFeatures(projector, bank, pose)
	if err != nil {
		return nil, err
	}
	canvas.AddNoise(noise, src)
	m, err := canvas.Map()
	if err != nil {
		return nil, err
	}
	return features.NewMapFromTensor(m.ToTensor())
}

func minmax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func plotErrors(errsDeg []float64, path string) error {
	p := plot.New()
	p.Title.Text = "Rotation error"
	p.X.Label.Text = "error (degrees)"
	p.Y.Label.Text = "samples"
	p.X.Min = 0
	p.X.Max = 180

	hist, err := plotter.NewHist(plotter.Values(errsDeg), int(math.Max(1, math.Min(18, float64(len(errsDeg))))))
	if err != nil {
		return errors.Wrap(err, "building histogram")
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
