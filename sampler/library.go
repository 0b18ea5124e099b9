package sampler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/logging"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/utils"
)

// Candidate is one enumerated pose and its projection. Err is set, and Projection nil, when
// the pose could not be turned into a camera.
type Candidate struct {
	Index      int
	Pose       camera.Pose
	Projection *render.Projection
	Err        error
}

// Valid reports whether the candidate was projected.
func (c *Candidate) Valid() bool {
	return c.Err == nil && c.Projection != nil
}

// Library is an immutable, ordered list of projected candidates. It is safe for concurrent
// reads.
type Library struct {
	candidates    []Candidate
	numVertices   int
	degrees       bool
	buildDuration time.Duration
}

type buildOptions struct {
	clock  clock.Clock
	logger logging.Logger
}

// Option configures a library build.
type Option func(*buildOptions)

// WithClock measures the build with c.
func WithClock(c clock.Clock) Option {
	return func(o *buildOptions) {
		o.clock = c
	}
}

// WithLogger logs build progress to logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

func newBuildOptions(opts []Option) *buildOptions {
	o := &buildOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewBlankLogger("sampler")
	}
	return o
}

// Build enumerates the Cartesian product of ranges in row-major order, with the principal
// point axis varying fastest and azimuth slowest, and projects every candidate through
// projector. A pose that cannot form a camera is recorded on its candidate; any other
// projection error aborts the build.
func Build(ctx context.Context, projector render.Projector, ranges Ranges, opts ...Option) (*Library, error) {
	if err := ranges.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid candidate ranges")
	}
	axes := [][]float64{
		ranges.Azimuth.Values(),
		ranges.Elevation.Values(),
		ranges.Theta.Values(),
		ranges.Distance.Values(),
	}
	var principals []*r2.Point
	if len(ranges.PrincipalOffsets) == 0 {
		principals = []*r2.Point{nil}
	} else {
		intrinsics := projector.Intrinsics()
		rate := float64(intrinsics.DownSampleRate)
		for _, off := range ranges.PrincipalOffsets {
			principals = append(principals, &r2.Point{X: intrinsics.Ppx*rate + off.X, Y: intrinsics.Ppy*rate + off.Y})
		}
	}

	dims := ranges.Dims()
	poses := make([]camera.Pose, utils.GridSize(dims))
	sub := make([]int, len(dims))
	for i := range poses {
		utils.SubFor(sub, i, dims)
		pose := camera.Pose{
			Azimuth:   axes[0][sub[0]],
			Elevation: axes[1][sub[1]],
			Theta:     axes[2][sub[2]],
			Distance:  axes[3][sub[3]],
		}
		if pp := principals[sub[4]]; pp != nil {
			p := *pp
			pose.Principal = &p
		}
		poses[i] = pose
	}
	return NewLibraryFromPoses(ctx, projector, poses, opts...)
}

// NewLibraryFromPoses projects an explicit list of candidate poses, keeping their order.
func NewLibraryFromPoses(ctx context.Context, projector render.Projector, poses []camera.Pose, opts ...Option) (*Library, error) {
	o := newBuildOptions(opts)
	start := o.clock.Now()

	lib := &Library{
		candidates:  make([]Candidate, len(poses)),
		numVertices: projector.Mesh().NumVertices(),
		degrees:     projector.Degrees(),
	}
	chunk := len(poses)/(4*utils.ParallelFactor) + 1

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(utils.ParallelFactor)
	for from := 0; from < len(poses); from += chunk {
		to := from + chunk
		if to > len(poses) {
			to = len(poses)
		}
		group.Go(func() error {
			for i := from; i < to; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cand := Candidate{Index: i, Pose: poses[i].Copy()}
				proj, err := projector.ProjectPose(cand.Pose)
				switch {
				case err == nil:
					cand.Projection = proj
				case errors.Is(err, camera.ErrInvalidPose):
					cand.Err = err
				default:
					return errors.Wrapf(err, "projecting candidate %d", i)
				}
				lib.candidates[i] = cand
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	lib.buildDuration = o.clock.Since(start)
	o.logger.Debugw("built candidate library",
		"candidates", len(lib.candidates),
		"valid", lib.ValidCount(),
		"duration", lib.buildDuration)
	return lib, nil
}

// Len returns the number of candidates.
func (l *Library) Len() int {
	return len(l.candidates)
}

// At returns candidate i. The candidate must not be modified.
func (l *Library) At(i int) *Candidate {
	return &l.candidates[i]
}

// Poses returns a copy of every candidate pose in order.
func (l *Library) Poses() []camera.Pose {
	out := make([]camera.Pose, len(l.candidates))
	for i := range l.candidates {
		out[i] = l.candidates[i].Pose.Copy()
	}
	return out
}

// NumVertices returns the vertex count of the mesh the library was projected from.
func (l *Library) NumVertices() int {
	return l.numVertices
}

// Degrees reports whether candidate poses are in degrees.
func (l *Library) Degrees() bool {
	return l.degrees
}

// ValidCount returns the number of projected candidates.
func (l *Library) ValidCount() int {
	n := 0
	for i := range l.candidates {
		if l.candidates[i].Valid() {
			n++
		}
	}
	return n
}

// MeanVisible returns the average number of visible vertices over valid candidates, or 0 if
// there are none.
func (l *Library) MeanVisible() float64 {
	counts := make([]float64, 0, len(l.candidates))
	for i := range l.candidates {
		if l.candidates[i].Valid() {
			counts = append(counts, float64(l.candidates[i].Projection.NumVisible()))
		}
	}
	mean, err := stats.Mean(counts)
	if err != nil {
		return 0
	}
	return mean
}

// BuildDuration returns how long projecting the candidates took.
func (l *Library) BuildDuration() time.Duration {
	return l.buildDuration
}
