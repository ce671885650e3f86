package viewport

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

const (
	minDistance  = 10.0
	maxDistance  = 100000.0
	maxElevation = 89.0
)

// Camera orbits a target point. Angles are degrees; distances millimeters.
type Camera struct {
	Target    mgl64.Vec3
	Distance  float64
	Azimuth   float64
	Elevation float64
	FovY      float64
	Near      float64
	Far       float64
	Ortho     bool
}

// NewCamera returns a perspective camera three meters in front of the origin.
func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset restores the default pose and projection, keeping the projection kind.
func (c *Camera) Reset() {
	ortho := c.Ortho
	*c = Camera{
		Distance: 3000,
		FovY:     60,
		Near:     1,
		Far:      20000,
		Ortho:    ortho,
	}
}

// Orbit swings the camera around its target.
func (c *Camera) Orbit(dAzimuth, dElevation float64) {
	c.Azimuth = math.Mod(c.Azimuth+dAzimuth, 360)
	c.Elevation = lo.Clamp(c.Elevation+dElevation, -maxElevation, maxElevation)
}

// Zoom scales the distance to the target; factors below 1 move closer.
func (c *Camera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.Distance = lo.Clamp(c.Distance*factor, minDistance, maxDistance)
}

// Pan moves the target within the view plane.
func (c *Camera) Pan(dx, dy float64) {
	right, up := c.axes()
	c.Target = c.Target.Add(right.Mul(dx)).Add(up.Mul(dy))
}

// Eye returns the camera position.
func (c *Camera) Eye() mgl64.Vec3 {
	az := mgl64.DegToRad(c.Azimuth)
	el := mgl64.DegToRad(c.Elevation)
	dir := mgl64.Vec3{math.Cos(el) * math.Sin(az), math.Sin(el), math.Cos(el) * math.Cos(az)}
	return c.Target.Add(dir.Mul(c.Distance))
}

func (c *Camera) axes() (right, up mgl64.Vec3) {
	forward := c.Target.Sub(c.Eye()).Normalize()
	right = forward.Cross(mgl64.Vec3{0, 1, 0}).Normalize()
	up = right.Cross(forward)
	return right, up
}

// View returns the world to camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye(), c.Target, mgl64.Vec3{0, 1, 0})
}

// Projection returns the camera to clip matrix for the given width/height ratio. The
// orthographic volume matches the perspective frustum's size at the target.
func (c *Camera) Projection(aspect float64) mgl64.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	if c.Ortho {
		halfH := c.Distance * math.Tan(mgl64.DegToRad(c.FovY)/2)
		halfW := halfH * aspect
		return mgl64.Ortho(-halfW, halfW, -halfH, halfH, c.Near, c.Far)
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), aspect, c.Near, c.Far)
}
