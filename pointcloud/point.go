package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// ColoredPoint is a sensor-local position in millimeters and the color it was seen with.
// It is a value; once built it is never mutated.
type ColoredPoint struct {
	Position r3.Vector
	Color    color.NRGBA
}

// NewColoredPoint returns a point with the given position and opaque color.
func NewColoredPoint(p r3.Vector, c color.NRGBA) ColoredPoint {
	c.A = 255
	return ColoredPoint{Position: p, Color: c}
}

// RGB255 returns the RGB components of the color.
func (cp ColoredPoint) RGB255() (uint8, uint8, uint8) {
	return cp.Color.R, cp.Color.G, cp.Color.B
}
