package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the categorical color cycle used for overlays.
var Palette = []color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{58, 40, 74, 255},
	{55, 34, 29, 255},
	{89, 47, 76, 255},
	{50, 50, 50, 255},
	{74, 74, 13, 255},
	{9, 75, 81, 255},
}

// PaletteColor returns the i-th palette color, cycling.
func PaletteColor(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// DrawProjection renders the depth map as a near-to-far color ramp and marks each inner vertex,
// green when visible and red when occluded. Each feature map pixel becomes scale×scale output
// pixels. depth may be nil.
func DrawProjection(depth *DepthMap, proj *Projection, height, width, scale int) image.Image {
	if scale < 1 {
		scale = 1
	}
	dc := gg.NewContext(width*scale, height*scale)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if depth != nil {
		near, _ := colorful.MakeColor(Palette[0])
		far, _ := colorful.MakeColor(Palette[1])
		lo, hi := depth.MinMax()
		for r := 0; r < depth.Height(); r++ {
			for c := 0; c < depth.Width(); c++ {
				d := depth.At(r, c)
				if d <= 0 {
					continue
				}
				t := 0.0
				if hi > lo {
					t = (d - lo) / (hi - lo)
				}
				dc.SetColor(near.BlendLab(far, t).Clamped())
				dc.DrawRectangle(float64(c*scale), float64(r*scale), float64(scale), float64(scale))
				dc.Fill()
			}
		}
	}

	radius := float64(scale) / 3
	if radius < 1.5 {
		radius = 1.5
	}
	for i, coord := range proj.Coords {
		if !proj.Inner[i] {
			continue
		}
		if proj.Visible[i] {
			dc.SetColor(Palette[2])
		} else {
			dc.SetColor(Palette[3])
		}
		dc.DrawCircle(coord.Col*float64(scale), coord.Row*float64(scale), radius)
		dc.Fill()
	}
	return dc.Image()
}

// SaveProjectionPNG writes DrawProjection output to path.
func SaveProjectionPNG(path string, depth *DepthMap, proj *Projection, height, width, scale int) error {
	return gg.SavePNG(path, DrawProjection(depth, proj, height, width, scale))
}
