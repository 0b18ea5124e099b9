// Package camera defines the pinhole model used to project meshes into feature maps and the
// spherical pose parameterization that places the camera around an object.
package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Config holds the image level camera settings. Projection happens at feature map resolution,
// which is the image size divided by DownSampleRate.
type Config struct {
	ImageHeight    int     `json:"image_height"`
	ImageWidth     int     `json:"image_width"`
	DownSampleRate int     `json:"down_sample_rate"`
	FocalLength    float64 `json:"focal_length"`
}

// DefaultConfig returns the settings the feature backbone is trained with.
func DefaultConfig() Config {
	return Config{
		ImageHeight:    320,
		ImageWidth:     448,
		DownSampleRate: 8,
		FocalLength:    3000,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	if cfg.ImageHeight <= 0 || cfg.ImageWidth <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid image size (%d, %d)", cfg.ImageHeight, cfg.ImageWidth))
	}
	if cfg.DownSampleRate <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid down sample rate %d", cfg.DownSampleRate))
	}
	if cfg.ImageHeight < cfg.DownSampleRate || cfg.ImageWidth < cfg.DownSampleRate {
		return NewNoIntrinsicsError(fmt.Sprintf("image (%d, %d) is smaller than the down sample rate %d",
			cfg.ImageHeight, cfg.ImageWidth, cfg.DownSampleRate))
	}
	if cfg.FocalLength <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length %#v", cfg.FocalLength))
	}
	return nil
}

// Intrinsics holds the parameters necessary to do a perspective projection of a 3D scene onto
// the feature map plane.
type Intrinsics struct {
	Width          int     `json:"width_px"`
	Height         int     `json:"height_px"`
	Fx             float64 `json:"fx"`
	Fy             float64 `json:"fy"`
	Ppx            float64 `json:"ppx"`
	Ppy            float64 `json:"ppy"`
	DownSampleRate int     `json:"down_sample_rate"`
}

// NewIntrinsics derives feature map resolution intrinsics from image level settings. The
// principal point defaults to the feature map center.
func NewIntrinsics(cfg Config) (*Intrinsics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	height := cfg.ImageHeight / cfg.DownSampleRate
	width := cfg.ImageWidth / cfg.DownSampleRate
	focal := cfg.FocalLength / float64(cfg.DownSampleRate)
	return &Intrinsics{
		Width:          width,
		Height:         height,
		Fx:             focal,
		Fy:             focal,
		Ppx:            float64(width / 2),
		Ppy:            float64(height / 2),
		DownSampleRate: cfg.DownSampleRate,
	}, nil
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fy = %#v", params.Fy))
	}
	if params.DownSampleRate <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid down sample rate %#v", params.DownSampleRate))
	}
	return nil
}

// Principal returns the principal point at feature resolution. An override is given in image
// pixels and is divided by the down sample rate; nil selects the default principal point.
func (params *Intrinsics) Principal(override *r2.Point) r2.Point {
	if override == nil {
		return r2.Point{X: params.Ppx, Y: params.Ppy}
	}
	rate := float64(params.DownSampleRate)
	return r2.Point{X: override.X / rate, Y: override.Y / rate}
}

// Coord is a 2D feature map location in (row, column) order.
type Coord struct {
	Row float64
	Col float64
}

// Floor returns the integer pixel containing the coordinate.
func (c Coord) Floor() (row, col int) {
	return int(math.Floor(c.Row)), int(math.Floor(c.Col))
}

// Project maps a camera frame point to a feature map coordinate. The raw pinhole projection
// (u, v) is corrected to (2·ppy − v, 2·ppx − u), which turns the camera's +X left, +Y up
// frame into image rows and columns. ok is false for points on or behind the camera plane.
func (params *Intrinsics) Project(pc r3.Vector, principal r2.Point) (Coord, bool) {
	if pc.Z <= 0 {
		return Coord{Row: math.Inf(-1), Col: math.Inf(-1)}, false
	}
	u := params.Fx*pc.X/pc.Z + principal.X
	v := params.Fy*pc.Y/pc.Z + principal.Y
	return Coord{Row: 2*principal.Y - v, Col: 2*principal.X - u}, true
}

// Inner reports whether c lies in [0, Height) × [0, Width).
func (params *Intrinsics) Inner(c Coord) bool {
	return c.Row >= 0 && c.Row < float64(params.Height) && c.Col >= 0 && c.Col < float64(params.Width)
}

// Clamp limits c to [0, Height−1] × [0, Width−1].
func (params *Intrinsics) Clamp(c Coord) Coord {
	return Coord{
		Row: math.Max(0, math.Min(float64(params.Height-1), c.Row)),
		Col: math.Max(0, math.Min(float64(params.Width-1), c.Col)),
	}
}
