// Package render defines the drawing surface a scene is composed onto.
package render

import (
	"image/color"

	"github.com/golang/geo/r3"

	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/spatialmath"
	"go.viam.com/rigview/viewport"
)

// A Renderer draws primitives in the frame given by its model transform stack. Every Draw
// call is transformed by the current top of the stack.
type Renderer interface {
	spatialmath.MatrixStack

	SetColor(c color.NRGBA)
	SetPointSize(size float64)
	EnableDepthTest()
	DisableDepthTest()

	// DrawPoints draws each point in its own color.
	DrawPoints(cloud *pointcloud.PointCloud)
	DrawLine(from, to r3.Vector)
	// DrawBox draws a wireframe box of the given size centered on the origin.
	DrawBox(size r3.Vector)
	DrawSphere(center r3.Vector, radius float64)

	// BeginCamera starts drawing through cam. Calls nest with the model stack.
	BeginCamera(cam *viewport.Camera)
	EndCamera()
}

// WithDepthTest enables the depth test for the duration of fn.
func WithDepthTest(r Renderer, fn func()) {
	r.EnableDepthTest()
	defer r.DisableDepthTest()
	fn()
}
