package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewIntrinsics(t *testing.T) {
	intrinsics, err := NewIntrinsics(DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.Height, test.ShouldEqual, 40)
	test.That(t, intrinsics.Width, test.ShouldEqual, 56)
	test.That(t, intrinsics.Fx, test.ShouldEqual, 375)
	test.That(t, intrinsics.Ppx, test.ShouldEqual, 28)
	test.That(t, intrinsics.Ppy, test.ShouldEqual, 20)
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)

	// Odd sizes truncate like integer division.
	intrinsics, err = NewIntrinsics(Config{ImageHeight: 100, ImageWidth: 90, DownSampleRate: 8, FocalLength: 800})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.Height, test.ShouldEqual, 12)
	test.That(t, intrinsics.Width, test.ShouldEqual, 11)
	test.That(t, intrinsics.Ppx, test.ShouldEqual, 5)
	test.That(t, intrinsics.Ppy, test.ShouldEqual, 6)

	pp := intrinsics.Principal(&r2.Point{X: 40, Y: 16})
	test.That(t, pp, test.ShouldResemble, r2.Point{X: 5, Y: 2})
	test.That(t, intrinsics.Principal(nil), test.ShouldResemble, r2.Point{X: 5, Y: 6})

	for _, cfg := range []Config{
		{ImageHeight: 0, ImageWidth: 10, DownSampleRate: 1, FocalLength: 1},
		{ImageHeight: 10, ImageWidth: 10, DownSampleRate: 0, FocalLength: 1},
		{ImageHeight: 4, ImageWidth: 10, DownSampleRate: 8, FocalLength: 1},
		{ImageHeight: 10, ImageWidth: 10, DownSampleRate: 1, FocalLength: -1},
	} {
		_, err := NewIntrinsics(cfg)
		test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	}
	var missing *Intrinsics
	test.That(t, errors.Is(missing.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestProjectCorrection(t *testing.T) {
	intrinsics := &Intrinsics{Width: 20, Height: 10, Fx: 100, Fy: 100, Ppx: 10, Ppy: 5, DownSampleRate: 1}
	pp := intrinsics.Principal(nil)

	c, ok := intrinsics.Project(r3.Vector{Z: 5}, pp)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, Coord{Row: 5, Col: 10})

	// Camera +X is image left and camera +Y is image up.
	c, _ = intrinsics.Project(r3.Vector{X: 0.1, Y: 0.1, Z: 5}, pp)
	test.That(t, c.Col, test.ShouldAlmostEqual, 8)
	test.That(t, c.Row, test.ShouldAlmostEqual, 3)

	_, ok = intrinsics.Project(r3.Vector{Z: -1}, pp)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestInnerBoundary(t *testing.T) {
	intrinsics := &Intrinsics{Width: 20, Height: 10, Fx: 100, Fy: 100, Ppx: 10, Ppy: 5, DownSampleRate: 1}
	test.That(t, intrinsics.Inner(Coord{0, 0}), test.ShouldBeTrue)
	test.That(t, intrinsics.Inner(Coord{9.999, 19.999}), test.ShouldBeTrue)
	test.That(t, intrinsics.Inner(Coord{10, 3}), test.ShouldBeFalse)
	test.That(t, intrinsics.Inner(Coord{3, 20}), test.ShouldBeFalse)
	test.That(t, intrinsics.Inner(Coord{-0.001, 3}), test.ShouldBeFalse)

	test.That(t, intrinsics.Clamp(Coord{12, -3}), test.ShouldResemble, Coord{9, 0})
	row, col := Coord{3.7, -0.2}.Floor()
	test.That(t, row, test.ShouldEqual, 3)
	test.That(t, col, test.ShouldEqual, -1)
}

func TestBuildExtrinsicsValidRotation(t *testing.T) {
	for az := -7.0; az <= 7; az += 0.9 {
		for el := -math.Pi / 2; el <= math.Pi/2+1e-9; el += math.Pi / 8 {
			for _, theta := range []float64{-3, 0, 0.4, 6.5} {
				pose := Pose{Azimuth: az, Elevation: el, Theta: theta, Distance: 5}
				ext, err := BuildExtrinsics(pose, false)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, ext.R.Det(), test.ShouldAlmostEqual, 1, 1e-9)
				test.That(t, ext.R.OrthonormalityError(), test.ShouldBeLessThan, 1e-6)

				center, err := ext.CameraCenter()
				test.That(t, err, test.ShouldBeNil)
				eye := CameraPositionFromSpherical(az, el, 5)
				test.That(t, center.Distance(eye), test.ShouldBeLessThan, 1e-9)

				// The origin is on the optical axis at the pose distance.
				origin := ext.Apply(r3.Vector{})
				test.That(t, origin.X, test.ShouldAlmostEqual, 0)
				test.That(t, origin.Y, test.ShouldAlmostEqual, 0)
				test.That(t, origin.Z, test.ShouldAlmostEqual, 5)

				again, err := BuildExtrinsics(pose, false)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, again, test.ShouldResemble, ext)
			}
		}
	}
}

func TestBuildExtrinsicsConventions(t *testing.T) {
	ext, err := BuildExtrinsics(Pose{Distance: 5}, false)
	test.That(t, err, test.ShouldBeNil)
	// Camera at +Z looking back at the origin: world +Y stays up, world +X maps to camera -X.
	test.That(t, ext.Apply(r3.Vector{Y: 1}).Y, test.ShouldAlmostEqual, 1)
	test.That(t, ext.Apply(r3.Vector{X: 1}).X, test.ShouldAlmostEqual, -1)

	deg, err := BuildExtrinsics(Pose{Azimuth: 90, Elevation: 30, Theta: 10, Distance: 5}, true)
	test.That(t, err, test.ShouldBeNil)
	rad, err := BuildExtrinsics(Pose{Azimuth: math.Pi / 2, Elevation: math.Pi / 6, Theta: math.Pi / 18, Distance: 5}, false)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, deg.R.At(i, j), test.ShouldAlmostEqual, rad.R.At(i, j))
		}
	}

	// Theta spins the image plane about the optical axis.
	spun, err := BuildExtrinsics(Pose{Theta: math.Pi / 2, Distance: 5}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spun.Apply(r3.Vector{Y: 1}).X, test.ShouldAlmostEqual, 1)
}

func TestBuildExtrinsicsInvalid(t *testing.T) {
	for _, pose := range []Pose{
		{Distance: 0},
		{Distance: -1},
		{Azimuth: math.NaN(), Distance: 1},
		{Theta: math.Inf(1), Distance: 1},
		{Distance: 1, Principal: &r2.Point{X: math.NaN()}},
	} {
		_, err := BuildExtrinsics(pose, false)
		test.That(t, errors.Is(err, ErrInvalidPose), test.ShouldBeTrue)
	}

	_, err := LookAt(r3.Vector{Y: 2}, r3.Vector{}, r3.Vector{Y: 1})
	test.That(t, errors.Is(err, ErrInvalidPose), test.ShouldBeTrue)

	_, err = (Extrinsics{}).CameraCenter()
	test.That(t, errors.Is(err, ErrInvalidPose), test.ShouldBeTrue)
}

func TestPoseNormalized(t *testing.T) {
	p := Pose{Azimuth: -math.Pi / 2, Elevation: 2, Theta: 3 * math.Pi, Distance: 5}.Normalized()
	test.That(t, p.Azimuth, test.ShouldAlmostEqual, 3*math.Pi/2)
	test.That(t, p.Elevation, test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, p.Theta, test.ShouldAlmostEqual, math.Pi)

	withPP := Pose{Distance: 1, Principal: &r2.Point{X: 1, Y: 2}}
	cp := withPP.Copy()
	cp.Principal.X = 7
	test.That(t, withPP.Principal.X, test.ShouldEqual, 1)

	back := Pose{Azimuth: 1, Elevation: 0.5, Theta: 0.2, Distance: 3}.Degrees().Radians(true)
	test.That(t, back.Azimuth, test.ShouldAlmostEqual, 1)
	test.That(t, back.Elevation, test.ShouldAlmostEqual, 0.5)
}
