package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/render"
	"github.com/standardgalactic/neural-mesh/sampler"
)

// projectionBytes approximates the memory of one projected vertex: two coordinates, two
// flags, a weight and a distance.
const projectionBytes = 2*16 + 2 + 2*8

// LibraryAction builds the candidate library for a mesh and prints a summary.
func LibraryAction(c *cli.Context) error {
	cfg := configFromContext(c)
	logger := loggerFromContext(c)

	mesh, err := loadMesh(c.String(meshFlag))
	if err != nil {
		return err
	}
	mesh = mesh.Centered()
	intrinsics, err := camera.NewIntrinsics(cfg.Camera)
	if err != nil {
		return err
	}
	projector, err := render.NewProjector(mesh, intrinsics, cfg.Render)
	if err != nil {
		return err
	}
	lib, err := sampler.Build(c.Context, projector, cfg.Sampling, sampler.WithLogger(logger.Sublogger("sampler")))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"Mesh", fmt.Sprintf("%d vertices, %d faces", mesh.NumVertices(), mesh.NumFaces())},
		{"Feature map", fmt.Sprintf("%dx%d (fx %.1f)", intrinsics.Width, intrinsics.Height, intrinsics.Fx)},
		{"Projector", string(projector.Kind())},
		{"Candidates", lib.Len()},
		{"Valid", lib.ValidCount()},
		{"Mean visible", fmt.Sprintf("%.1f", lib.MeanVisible())},
		{"Build time", units.HumanDuration(lib.BuildDuration())},
		{"Projection memory", units.HumanSize(float64(lib.Len() * lib.NumVertices() * projectionBytes))},
	})
	printf(c, "%s", t.Render())

	if dir := c.Path(visualizeFlag); dir != "" {
		return visualizeLibrary(c, projector, lib, dir)
	}
	return nil
}

// visualizeLibrary writes an overlay for each of the first candidates. Hard projector
// overlays include the depth map.
func visualizeLibrary(c *cli.Context, projector render.Projector, lib *sampler.Library, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "creating visualization directory")
	}
	intrinsics := projector.Intrinsics()
	n := c.Int(countFlag)
	if n > lib.Len() {
		n = lib.Len()
	}
	for i := 0; i < n; i++ {
		cand := lib.At(i)
		if !cand.Valid() {
			continue
		}
		proj := cand.Projection
		var depth *render.DepthMap
		if hard, ok := projector.(*render.HardMeshProjector); ok {
			ext, err := camera.BuildExtrinsics(cand.Pose, projector.Degrees())
			if err != nil {
				return err
			}
			if proj, depth, err = hard.ProjectWithDepth(ext, cand.Pose.Principal); err != nil {
				return err
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("candidate_%04d.png", i))
		if err := render.SaveProjectionPNG(path, depth, proj, intrinsics.Height, intrinsics.Width, c.Int(scaleFlag)); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	printf(c, "wrote %d overlays to %s", n, dir)
	return nil
}
