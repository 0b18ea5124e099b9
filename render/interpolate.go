package render

import (
	"github.com/standardgalactic/neural-mesh/camera"
	"github.com/standardgalactic/neural-mesh/features"
)

// RenderFeatures rasterizes the mesh under pose and blends the bank descriptors of each covered
// face into a dense feature map. Uncovered pixels hold the clutter descriptor. It produces the
// map an ideal backbone would extract for the pose.
func RenderFeatures(proj Projector, bank *features.Bank, pose camera.Pose) (*features.Canvas, error) {
	mesh, intrinsics := proj.Mesh(), proj.Intrinsics()
	if bank.NumVertices() != mesh.NumVertices() {
		return nil, features.NewShapeMismatchError("bank has %d descriptors for %d vertices",
			bank.NumVertices(), mesh.NumVertices())
	}
	ext, err := camera.BuildExtrinsics(pose, proj.Degrees())
	if err != nil {
		return nil, err
	}
	pp := intrinsics.Principal(pose.Principal)
	n := mesh.NumVertices()
	coords := make([]camera.Coord, n)
	depths := make([]float64, n)
	for i := 0; i < n; i++ {
		pc := ext.Apply(mesh.Vertex(i))
		coords[i], _ = intrinsics.Project(pc, pp)
		depths[i] = pc.Z
	}
	faces := mesh.Faces()
	frags := Rasterize(coords, depths, faces, intrinsics.Height, intrinsics.Width, RasterSettings{})

	canvas := features.NewCanvas(bank.Dim(), intrinsics.Height, intrinsics.Width)
	canvas.Fill(bank.Clutter())
	for i, fi := range frags.PixToFace {
		if fi < 0 {
			continue
		}
		face, bary := faces[fi], frags.Bary[i]
		px := canvas.Pixel(i/intrinsics.Width, i%intrinsics.Width)
		for c := range px {
			px[c] = 0
			for k := 0; k < 3; k++ {
				px[c] += bary[k] * bank.Vertex(face[k])[c]
			}
		}
	}
	return canvas, nil
}
