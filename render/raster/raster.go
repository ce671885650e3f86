// Package raster is a software Renderer that draws into an image with a z-buffer for
// points, so scenes can be snapshotted without a display.
package raster

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/spatialmath"
	"go.viam.com/rigview/viewport"
)

// DefaultBackground is the clear color.
var DefaultBackground = color.NRGBA{0, 0, 0, 255}

// Canvas draws into an in-memory image.
type Canvas struct {
	dc            *gg.Context
	width, height int
	zbuf          []float64
	background    color.NRGBA

	stack     *spatialmath.Stack
	color     color.NRGBA
	pointSize float64
	depthTest bool
	cameras   []mgl64.Mat4

	drawn int
}

// New returns a cleared canvas of the given size.
func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	c := &Canvas{
		dc:         gg.NewContext(width, height),
		width:      width,
		height:     height,
		zbuf:       make([]float64, width*height),
		background: DefaultBackground,
		stack:      spatialmath.NewStack(),
		pointSize:  1,
	}
	c.Clear()
	return c, nil
}

// Clear fills the image with the background and resets the z-buffer, the transform stack
// and the drawn point count.
func (c *Canvas) Clear() {
	c.dc.SetColor(c.background)
	c.dc.Clear()
	for i := range c.zbuf {
		c.zbuf[i] = math.Inf(1)
	}
	c.stack.Reset()
	c.cameras = c.cameras[:0]
	c.depthTest = false
	c.drawn = 0
}

// Image returns the rendered image.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the image as png.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

// SavePNG writes the image to a png file.
func (c *Canvas) SavePNG(path string) error {
	return errors.Wrapf(c.dc.SavePNG(path), "saving snapshot %q", path)
}

// PointsDrawn returns how many points landed on screen since the last Clear.
func (c *Canvas) PointsDrawn() int {
	return c.drawn
}

// PushMatrix implements spatialmath.MatrixStack.
func (c *Canvas) PushMatrix() {
	c.stack.PushMatrix()
}

// MultMatrix implements spatialmath.MatrixStack.
func (c *Canvas) MultMatrix(t spatialmath.Transform) {
	c.stack.MultMatrix(t)
}

// PopMatrix implements spatialmath.MatrixStack.
func (c *Canvas) PopMatrix() error {
	return c.stack.PopMatrix()
}

// Depth implements spatialmath.MatrixStack.
func (c *Canvas) Depth() int {
	return c.stack.Depth()
}

// SetColor sets the color of lines, boxes and spheres.
func (c *Canvas) SetColor(col color.NRGBA) {
	c.color = col
}

// SetPointSize sets the side of the square drawn for each point, in pixels.
func (c *Canvas) SetPointSize(size float64) {
	if size < 1 {
		size = 1
	}
	c.pointSize = size
}

// EnableDepthTest makes points hide behind nearer points.
func (c *Canvas) EnableDepthTest() {
	c.depthTest = true
}

// DisableDepthTest draws points in call order.
func (c *Canvas) DisableDepthTest() {
	c.depthTest = false
}

// BeginCamera projects subsequent draws through cam.
func (c *Canvas) BeginCamera(cam *viewport.Camera) {
	aspect := float64(c.width) / float64(c.height)
	c.cameras = append(c.cameras, cam.Projection(aspect).Mul4(cam.View()))
}

// EndCamera returns to the enclosing camera, or to normalized device coordinates.
func (c *Canvas) EndCamera() {
	if len(c.cameras) > 0 {
		c.cameras = c.cameras[:len(c.cameras)-1]
	}
}

func (c *Canvas) viewProjection() mgl64.Mat4 {
	if len(c.cameras) == 0 {
		return mgl64.Ident4()
	}
	return c.cameras[len(c.cameras)-1]
}

// project maps a model space point to pixel coordinates and a depth in [-1, 1]. Points
// behind the camera or outside the depth range are rejected.
func project(mvp mgl64.Mat4, p r3.Vector, width, height int) (float64, float64, float64, bool) {
	clip := mvp.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if clip.W() <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if ndc.Z() < -1 || ndc.Z() > 1 {
		return 0, 0, 0, false
	}
	x := (ndc.X() + 1) / 2 * float64(width)
	y := (1 - ndc.Y()) / 2 * float64(height)
	return x, y, ndc.Z(), true
}

func (c *Canvas) mvp() mgl64.Mat4 {
	return c.viewProjection().Mul4(c.stack.Top().Matrix())
}

// DrawPoints draws each point as a square in its own color.
func (c *Canvas) DrawPoints(cloud *pointcloud.PointCloud) {
	mvp := c.mvp()
	half := c.pointSize / 2
	cloud.Iterate(func(p pointcloud.ColoredPoint) bool {
		sx, sy, z, ok := project(mvp, p.Position, c.width, c.height)
		if !ok {
			return true
		}
		x0, y0 := int(math.Floor(sx-half+0.5)), int(math.Floor(sy-half+0.5))
		size := int(c.pointSize)
		hit := false
		c.dc.SetColor(p.Color)
		for y := y0; y < y0+size; y++ {
			for x := x0; x < x0+size; x++ {
				if x < 0 || y < 0 || x >= c.width || y >= c.height {
					continue
				}
				k := y*c.width + x
				if c.depthTest {
					if z >= c.zbuf[k] {
						continue
					}
					c.zbuf[k] = z
				}
				c.dc.SetPixel(x, y)
				hit = true
			}
		}
		if hit {
			c.drawn++
		}
		return true
	})
}

// DrawLine strokes a line when both ends are in front of the camera.
func (c *Canvas) DrawLine(from, to r3.Vector) {
	mvp := c.mvp()
	x0, y0, _, ok0 := project(mvp, from, c.width, c.height)
	x1, y1, _, ok1 := project(mvp, to, c.width, c.height)
	if !ok0 || !ok1 {
		return
	}
	c.dc.SetColor(c.color)
	c.dc.SetLineWidth(1)
	c.dc.DrawLine(x0, y0, x1, y1)
	c.dc.Stroke()
}

// DrawBox draws the twelve edges of a box centered on the origin.
func (c *Canvas) DrawBox(size r3.Vector) {
	h := size.Mul(0.5)
	var corners [8]r3.Vector
	for i := range corners {
		corners[i] = r3.Vector{X: h.X, Y: h.Y, Z: h.Z}
		if i&1 != 0 {
			corners[i].X = -h.X
		}
		if i&2 != 0 {
			corners[i].Y = -h.Y
		}
		if i&4 != 0 {
			corners[i].Z = -h.Z
		}
	}
	for i := range corners {
		for _, bit := range []int{1, 2, 4} {
			if j := i | bit; j != i {
				c.DrawLine(corners[i], corners[j])
			}
		}
	}
}

// DrawSphere draws the outline of a sphere as a circle facing the viewer.
func (c *Canvas) DrawSphere(center r3.Vector, radius float64) {
	mvp := c.mvp()
	cx, cy, _, ok := project(mvp, center, c.width, c.height)
	if !ok {
		return
	}
	ex, ey, _, ok := project(mvp, center.Add(r3.Vector{X: radius}), c.width, c.height)
	if !ok {
		return
	}
	r := math.Max(1, math.Hypot(ex-cx, ey-cy))
	c.dc.SetColor(c.color)
	c.dc.SetLineWidth(1)
	c.dc.DrawCircle(cx, cy, r)
	c.dc.Stroke()
}
