package rimage

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeTestDepthMap() *DepthMap {
	dm := NewEmptyDepthMap(4, 3)
	dm.Set(0, 0, 500)
	dm.Set(3, 2, 1200)
	dm.Set(1, 1, 800)
	return dm
}

func TestDepthMapBasics(t *testing.T) {
	dm := makeTestDepthMap()
	test.That(t, dm.HasData(), test.ShouldBeTrue)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.DistanceAt(3, 2), test.ShouldEqual, 1200)
	test.That(t, dm.DistanceAt(4, 0), test.ShouldEqual, 0)
	test.That(t, dm.DistanceAt(-1, 0), test.ShouldEqual, 0)
	test.That(t, dm.ValidCount(), test.ShouldEqual, 3)

	lo, hi := dm.MinMax()
	test.That(t, lo, test.ShouldEqual, Depth(500))
	test.That(t, hi, test.ShouldEqual, Depth(1200))

	clone := dm.Clone()
	clone.Set(0, 0, 1)
	test.That(t, dm.GetDepth(0, 0), test.ShouldEqual, Depth(500))

	var nilMap *DepthMap
	test.That(t, nilMap.HasData(), test.ShouldBeFalse)
	test.That(t, nilMap.DistanceAt(0, 0), test.ShouldEqual, 0)
	test.That(t, nilMap.Width(), test.ShouldEqual, 0)
}

func TestDepthMapRawRoundTrip(t *testing.T) {
	dm := makeTestDepthMap()
	var buf bytes.Buffer
	n, err := dm.WriteTo(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, int64(16+2*12))

	got, err := ReadDepthMap(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, dm)

	_, err = ReadDepthMap(bytes.NewReader([]byte{1, 2}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthMapFiles(t *testing.T) {
	dir := t.TempDir()
	dm := makeTestDepthMap()
	for _, name := range []string{"depth.png", "depth.dat", "depth.dat.gz"} {
		t.Run(name, func(t *testing.T) {
			fn := filepath.Join(dir, name)
			test.That(t, dm.WriteToFile(fn), test.ShouldBeNil)
			got, err := ParseDepthMap(fn)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got, test.ShouldResemble, dm)
		})
	}

	_, err := ParseDepthMap(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvertImageToDepthMap(t *testing.T) {
	_, err := ConvertImageToDepthMap(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "RGBA")
}

func TestImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.RGBA{10, 20, 30, 255})
	img := ConvertImage(src)
	test.That(t, img.Width(), test.ShouldEqual, 3)
	test.That(t, img.Height(), test.ShouldEqual, 2)
	test.That(t, img.ColorAt(2, 1), test.ShouldResemble, color.NRGBA{10, 20, 30, 255})
	test.That(t, img.ColorAt(5, 5), test.ShouldResemble, color.NRGBA{})

	fn := filepath.Join(t.TempDir(), "color.png")
	test.That(t, WriteImageToFile(fn, img), test.ShouldBeNil)
	back, err := ReadImageFromFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.ColorAt(2, 1), test.ShouldResemble, color.NRGBA{10, 20, 30, 255})
}

func TestIntrinsics(t *testing.T) {
	in := KinectV1Intrinsics()
	test.That(t, in.CheckValid(), test.ShouldBeNil)

	p := in.PixelToPoint(in.Ppx, in.Ppy, 1000)
	test.That(t, p, test.ShouldResemble, r3.Vector{Z: 1000})

	p = in.PixelToPoint(100, 400, 1500)
	test.That(t, p.Z, test.ShouldEqual, 1500.0)
	test.That(t, p.X*in.Fx/p.Z+in.Ppx, test.ShouldAlmostEqual, 100)
	test.That(t, p.Y*in.Fy/p.Z+in.Ppy, test.ShouldAlmostEqual, 400)

	var missing *PinholeCameraIntrinsics
	test.That(t, missing.CheckValid(), test.ShouldNotBeNil)
	bad := &PinholeCameraIntrinsics{Width: 10, Height: 10, Fx: 0, Fy: 1}
	test.That(t, bad.CheckValid().Error(), test.ShouldContainSubstring, "Fx")
}
