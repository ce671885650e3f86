// Package spatialmath defines rigid transforms and the LIFO transform stack used to place
// point clouds in a shared scene.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Axes of a right handed frame.
var (
	XAxis = r3.Vector{X: 1}
	YAxis = r3.Vector{Y: 1}
	ZAxis = r3.Vector{Z: 1}
)

// Transform is an affine transform held as a homogeneous 4x4 column-major matrix.
// The zero value is not valid; use NewIdentity.
type Transform struct {
	mat mgl64.Mat4
}

// NewIdentity returns the transform that changes nothing.
func NewIdentity() Transform {
	return Transform{mgl64.Ident4()}
}

// NewTranslation returns a pure translation by v.
func NewTranslation(v r3.Vector) Transform {
	return Transform{mgl64.Translate3D(v.X, v.Y, v.Z)}
}

// NewScale returns a non-uniform scale about the origin.
func NewScale(x, y, z float64) Transform {
	return Transform{mgl64.Scale3D(x, y, z)}
}

// NewRotation returns a rotation of deg degrees about the given axis through the origin.
// A zero axis yields the identity.
func NewRotation(axis r3.Vector, deg float64) Transform {
	if axis.Norm2() == 0 {
		return NewIdentity()
	}
	n := axis.Normalize()
	return Transform{mgl64.HomogRotate3D(mgl64.DegToRad(deg), mgl64.Vec3{n.X, n.Y, n.Z})}
}

// NewRotationAbout returns a rotation of deg degrees about the axis passing through pivot.
func NewRotationAbout(pivot, axis r3.Vector, deg float64) Transform {
	return NewTranslation(pivot).
		Then(NewRotation(axis, deg)).
		Then(NewTranslation(pivot.Mul(-1)))
}

// Then returns t followed by next, where next is expressed in t's local frame. This is
// the post-multiplication a push/mult transform stack performs.
func (t Transform) Then(next Transform) Transform {
	return Transform{t.mat.Mul4(next.mat)}
}

// Apply maps a point through the transform.
func (t Transform) Apply(p r3.Vector) r3.Vector {
	v := t.mat.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if v[3] != 0 && v[3] != 1 {
		return r3.Vector{X: v[0] / v[3], Y: v[1] / v[3], Z: v[2] / v[3]}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// ApplyDirection maps a direction, ignoring translation.
func (t Transform) ApplyDirection(d r3.Vector) r3.Vector {
	v := t.mat.Mul4x1(mgl64.Vec4{d.X, d.Y, d.Z, 0})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Translation returns the translational component.
func (t Transform) Translation() r3.Vector {
	c := t.mat.Col(3)
	return r3.Vector{X: c[0], Y: c[1], Z: c[2]}
}

// Matrix returns the underlying matrix.
func (t Transform) Matrix() mgl64.Mat4 {
	return t.mat
}

// IsIdentity reports whether t is the identity within epsilon.
func (t Transform) IsIdentity(epsilon float64) bool {
	return t.AlmostEqual(NewIdentity(), epsilon)
}

// AlmostEqual compares two transforms elementwise.
func (t Transform) AlmostEqual(other Transform, epsilon float64) bool {
	for i := range t.mat {
		if math.Abs(t.mat[i]-other.mat[i]) > epsilon {
			return false
		}
	}
	return true
}
