// Package pointcloud builds colored point clouds from depth and color frames.
//
// A PointCloud here is an ordered, append-only list rebuilt every render tick; insertion
// order is the raster scan order of the frame it came from.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/rigview/spatialmath"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns bounds that any merged point will overwrite.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge grows the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// Center returns the middle of the bounds.
func (meta MetaData) Center() r3.Vector {
	return r3.Vector{
		X: (meta.MinX + meta.MaxX) / 2,
		Y: (meta.MinY + meta.MaxY) / 2,
		Z: (meta.MinZ + meta.MaxZ) / 2,
	}
}

// PointCloud is an ordered sequence of colored points.
type PointCloud struct {
	points []ColoredPoint
	meta   MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with room for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{points: make([]ColoredPoint, 0, size), meta: NewMetaData()}
}

// Append adds a point at the end of the cloud.
func (cloud *PointCloud) Append(p ColoredPoint) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p.Position)
}

// Size returns the number of points in the cloud. A nil cloud is empty.
func (cloud *PointCloud) Size() int {
	if cloud == nil {
		return 0
	}
	return len(cloud.points)
}

// MetaData returns the bounds of the cloud. The bounds of an empty cloud are inverted.
func (cloud *PointCloud) MetaData() MetaData {
	if cloud == nil {
		return NewMetaData()
	}
	return cloud.meta
}

// At returns the i-th point in scan order.
func (cloud *PointCloud) At(i int) ColoredPoint {
	return cloud.points[i]
}

// Points returns a copy of the points in scan order.
func (cloud *PointCloud) Points() []ColoredPoint {
	if cloud == nil {
		return nil
	}
	out := make([]ColoredPoint, len(cloud.points))
	copy(out, cloud.points)
	return out
}

// Iterate calls fn for every point in order until fn returns false.
func (cloud *PointCloud) Iterate(fn func(p ColoredPoint) bool) {
	if cloud == nil {
		return
	}
	for _, p := range cloud.points {
		if !fn(p) {
			return
		}
	}
}

// Reset empties the cloud but keeps its storage, for callers that reuse a cloud across
// ticks.
func (cloud *PointCloud) Reset() {
	cloud.points = cloud.points[:0]
	cloud.meta = NewMetaData()
}

// Transformed returns a new cloud with every position mapped through t. Colors and order
// are kept.
func (cloud *PointCloud) Transformed(t spatialmath.Transform) *PointCloud {
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(p ColoredPoint) bool {
		out.Append(ColoredPoint{Position: t.Apply(p.Position), Color: p.Color})
		return true
	})
	return out
}

// Merge concatenates clouds in order into a new cloud.
func Merge(clouds ...*PointCloud) *PointCloud {
	total := 0
	for _, c := range clouds {
		total += c.Size()
	}
	out := NewWithPrealloc(total)
	for _, c := range clouds {
		c.Iterate(func(p ColoredPoint) bool {
			out.Append(p)
			return true
		})
	}
	return out
}
