package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/render"
	"go.viam.com/rigview/spatialmath"
	"go.viam.com/rigview/viewport"
)

var (
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 0, 255, 255}
)

func rgbAt(c *Canvas, x, y int) [3]uint32 {
	r, g, b, _ := c.Image().At(x, y).RGBA()
	return [3]uint32{r >> 8, g >> 8, b >> 8}
}

func TestDepthTest(t *testing.T) {
	var r render.Renderer
	c, err := New(100, 100)
	test.That(t, err, test.ShouldBeNil)
	r = c

	near := pointcloud.New()
	near.Append(pointcloud.NewColoredPoint(r3.Vector{Z: -0.5}, red))
	far := pointcloud.New()
	far.Append(pointcloud.NewColoredPoint(r3.Vector{Z: 0.5}, blue))

	render.WithDepthTest(r, func() {
		r.DrawPoints(near)
		r.DrawPoints(far)
	})
	test.That(t, rgbAt(c, 50, 50), test.ShouldResemble, [3]uint32{255, 0, 0})
	test.That(t, c.PointsDrawn(), test.ShouldEqual, 1)

	// without the depth test the later point wins
	c.Clear()
	r.DrawPoints(near)
	r.DrawPoints(far)
	test.That(t, rgbAt(c, 50, 50), test.ShouldResemble, [3]uint32{0, 0, 255})
	test.That(t, c.PointsDrawn(), test.ShouldEqual, 2)
}

func TestPointSizeAndTransform(t *testing.T) {
	c, err := New(100, 100)
	test.That(t, err, test.ShouldBeNil)
	c.SetPointSize(3)
	cloud := pointcloud.New()
	cloud.Append(pointcloud.NewColoredPoint(r3.Vector{}, red))

	err = spatialmath.Scoped(c, spatialmath.NewTranslation(r3.Vector{X: 0.5}), func() error {
		c.DrawPoints(cloud)
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Depth(), test.ShouldEqual, 0)
	// x = 0.5 in device coordinates is three quarters across
	test.That(t, rgbAt(c, 75, 50), test.ShouldResemble, [3]uint32{255, 0, 0})
	test.That(t, rgbAt(c, 74, 49), test.ShouldResemble, [3]uint32{255, 0, 0})
	test.That(t, rgbAt(c, 50, 50), test.ShouldResemble, [3]uint32{0, 0, 0})

	// points outside the depth range are dropped
	c.Clear()
	behind := pointcloud.New()
	behind.Append(pointcloud.NewColoredPoint(r3.Vector{Z: 5}, red))
	c.DrawPoints(behind)
	test.That(t, c.PointsDrawn(), test.ShouldEqual, 0)
}

func TestCameraAndSnapshot(t *testing.T) {
	c, err := New(64, 48)
	test.That(t, err, test.ShouldBeNil)
	cam := viewport.NewCamera()
	cloud := pointcloud.New()
	cloud.Append(pointcloud.NewColoredPoint(r3.Vector{}, red))
	// behind the camera
	cloud.Append(pointcloud.NewColoredPoint(r3.Vector{Z: 5000}, blue))

	c.BeginCamera(cam)
	c.SetColor(blue)
	c.DrawBox(r3.Vector{X: 100, Y: 20, Z: 20})
	c.DrawLine(r3.Vector{}, r3.Vector{Z: -1000})
	c.DrawSphere(r3.Vector{Y: 100}, 10)
	c.DrawPoints(cloud)
	c.EndCamera()
	c.EndCamera()

	test.That(t, c.PointsDrawn(), test.ShouldEqual, 1)
	test.That(t, rgbAt(c, 32, 24), test.ShouldResemble, [3]uint32{255, 0, 0})

	var buf bytes.Buffer
	test.That(t, c.EncodePNG(&buf), test.ShouldBeNil)
	img, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 64)

	test.That(t, c.SavePNG(filepath.Join(t.TempDir(), "snap.png")), test.ShouldBeNil)
	test.That(t, c.SavePNG(filepath.Join(t.TempDir(), "missing", "snap.png")), test.ShouldNotBeNil)

	_, err = New(0, 10)
	test.That(t, err, test.ShouldNotBeNil)
}
