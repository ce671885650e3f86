package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// DefaultStride is the sampling step used when none is given.
const DefaultStride = 2

// DepthFrame is a grid of distances in millimeters where 0 means no return.
type DepthFrame interface {
	Width() int
	Height() int
	DistanceAt(x, y int) int
}

// ColorFrame is a color grid index-aligned with a DepthFrame.
type ColorFrame interface {
	ColorAt(x, y int) color.NRGBA
}

// WorldCoordinateFunc unprojects a frame cell into sensor-local space.
type WorldCoordinateFunc func(x, y int) r3.Vector

// SampleOptions controls how a frame is decimated and colored.
type SampleOptions struct {
	// Stride is the step in both axes. Values below 1 mean DefaultStride.
	Stride int
	// UseColor selects the frame's color; otherwise Placeholder is used.
	UseColor    bool
	Placeholder color.NRGBA
	// World maps a valid cell to its 3D position. When nil the cell's
	// (x, y, depth) is used as is.
	World WorldCoordinateFunc
}

func (opts SampleOptions) stride() int {
	if opts.Stride < 1 {
		return DefaultStride
	}
	return opts.Stride
}

// CandidateCount returns how many cells a walk of a width x height frame with the given
// stride visits.
func CandidateCount(width, height, stride int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	if stride < 1 {
		stride = DefaultStride
	}
	return ceilDiv(width, stride) * ceilDiv(height, stride)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Sample walks depth on a fixed stride, row by row, and returns one colored point for every
// visited cell with a non-zero depth. Cells with no return are culled. A nil or empty depth
// frame produces an empty cloud. Sample has no side effects.
func Sample(depth DepthFrame, colors ColorFrame, opts SampleOptions) *PointCloud {
	if depth == nil {
		return New()
	}
	width, height := depth.Width(), depth.Height()
	step := opts.stride()
	cloud := NewWithPrealloc(CandidateCount(width, height, step))

	world := opts.World
	if world == nil {
		world = func(x, y int) r3.Vector {
			return r3.Vector{X: float64(x), Y: float64(y), Z: float64(depth.DistanceAt(x, y))}
		}
	}
	useColor := opts.UseColor && colors != nil

	for y := 0; y < height; y += step {
		for x := 0; x < width; x += step {
			if depth.DistanceAt(x, y) <= 0 {
				continue
			}
			c := opts.Placeholder
			if useColor {
				c = colors.ColorAt(x, y)
			}
			cloud.Append(NewColoredPoint(world(x, y), c))
		}
	}
	return cloud
}
