// Package sensor defines the depth sensor collaborator a scene pulls frames from, and a
// registry of sensor models.
package sensor

import (
	"context"
	"image/color"

	"github.com/golang/geo/r3"

	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/rimage"
)

// A Sensor is a depth camera with an index-aligned color stream. Frame accessors read the
// frame latched by the last successful Latch and are cheap; Latch is where acquisition
// happens. Dimensions are fixed for the session.
type Sensor interface {
	// Name identifies the sensor in logs.
	Name() string

	Width() int
	Height() int

	// Latch makes the newest available frame current.
	Latch(ctx context.Context) error

	// DistanceAt returns the depth in millimeters at (x,y); 0 means no return.
	DistanceAt(x, y int) int
	// ColorAt returns the registered color at (x,y).
	ColorAt(x, y int) color.NRGBA
	// WorldCoordinateAt unprojects (x,y) into sensor-local millimeters.
	WorldCoordinateAt(x, y int) r3.Vector

	Close(ctx context.Context) error
}

// Latched holds the current frame of a sensor and answers the per-pixel accessors of the
// Sensor interface. Implementations embed it and swap frames in Latch.
type Latched struct {
	width, height int
	intrinsics    *rimage.PinholeCameraIntrinsics
	depth         *rimage.DepthMap
	color         *rimage.Image
}

// NewLatched returns an empty latch for frames of the given intrinsics.
func NewLatched(intrinsics *rimage.PinholeCameraIntrinsics) *Latched {
	return &Latched{width: intrinsics.Width, height: intrinsics.Height, intrinsics: intrinsics}
}

// SetFrame replaces the current frame. Either part may be nil.
func (l *Latched) SetFrame(depth *rimage.DepthMap, img *rimage.Image) {
	l.depth = depth
	l.color = img
}

// Intrinsics returns the pinhole model used to unproject pixels.
func (l *Latched) Intrinsics() *rimage.PinholeCameraIntrinsics {
	return l.intrinsics
}

// Width returns the frame width.
func (l *Latched) Width() int {
	return l.width
}

// Height returns the frame height.
func (l *Latched) Height() int {
	return l.height
}

// DistanceAt returns 0 for pixels outside the latched depth frame or when none is latched.
func (l *Latched) DistanceAt(x, y int) int {
	return l.depth.DistanceAt(x, y)
}

// ColorAt returns transparent black when no color frame is latched.
func (l *Latched) ColorAt(x, y int) color.NRGBA {
	return l.color.ColorAt(x, y)
}

// WorldCoordinateAt unprojects the latched depth at (x,y) through the pinhole model.
func (l *Latched) WorldCoordinateAt(x, y int) r3.Vector {
	return l.intrinsics.PixelToPoint(float64(x), float64(y), float64(l.DistanceAt(x, y)))
}

// Frames exposes the latched frame of s to the sampler. A nil sensor has no frames.
func Frames(s Sensor) (pointcloud.DepthFrame, pointcloud.ColorFrame, pointcloud.WorldCoordinateFunc) {
	if s == nil {
		return nil, nil, nil
	}
	return s, s, s.WorldCoordinateAt
}
