// Package scene composes the clouds of one or two depth sensors into a single drawn frame:
// each tick latches the sensors, samples their frames, orients the view and draws the
// primary cloud followed by the secondary cloud placed by the camera rig.
package scene

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/render"
	"go.viam.com/rigview/rig"
	"go.viam.com/rigview/sensor"
	"go.viam.com/rigview/spatialmath"
	"go.viam.com/rigview/viewport"
)

// ErrUnbalancedStack is returned when a frame leaves the transform stack deeper or
// shallower than it found it.
var ErrUnbalancedStack = errors.New("transform stack unbalanced after frame")

// Marker geometry drawn with every cloud, in millimeters.
var (
	AxisLength  = 5000.0
	MarkerBox   = r3.Vector{X: 100, Y: 20, Z: 20}
	PivotRadius = 10.0
)

// Default placeholder tints.
var (
	DefaultPrimaryPlaceholder   = color.NRGBA{150, 150, 150, 255}
	DefaultSecondaryPlaceholder = color.NRGBA{200, 200, 50, 255}
)

// Phase is a step of a frame.
type Phase int

// The phases of a frame, in order.
const (
	PhaseAcquire Phase = iota
	PhaseSample
	PhaseOrient
	PhaseDrawPrimary
	PhaseDrawSecondary
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAcquire:
		return "acquire"
	case PhaseSample:
		return "sample"
	case PhaseOrient:
		return "orient"
	case PhaseDrawPrimary:
		return "draw_primary"
	case PhaseDrawSecondary:
		return "draw_secondary"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Options tune how clouds are sampled and drawn.
type Options struct {
	Stride    int
	PointSize float64
	// MountCenter is how far in front of the sensor the cloud is recentred.
	MountCenter          float64
	PrimaryPlaceholder   color.NRGBA
	SecondaryPlaceholder color.NRGBA
}

// DefaultOptions match a Kinect sized sensor.
func DefaultOptions() Options {
	return Options{
		Stride:               pointcloud.DefaultStride,
		PointSize:            3,
		MountCenter:          1000,
		PrimaryPlaceholder:   DefaultPrimaryPlaceholder,
		SecondaryPlaceholder: DefaultSecondaryPlaceholder,
	}
}

// Frame is everything one tick draws. Secondary may be nil; the rig is then ignored.
type Frame struct {
	Primary   sensor.Sensor
	Secondary sensor.Sensor
	Rig       *rig.Rig
	View      *viewport.Controller
	Camera    *viewport.Camera
	UseColor  bool
}

// CloudStats describes one sampled cloud.
type CloudStats struct {
	Latched    bool
	Candidates int
	Emitted    int
}

// Stats describes a rendered frame.
type Stats struct {
	Primary   CloudStats
	Secondary *CloudStats
	Mode      viewport.Mode
	Elapsed   time.Duration
}

// Points returns the number of points drawn.
func (s Stats) Points() int {
	n := s.Primary.Emitted
	if s.Secondary != nil {
		n += s.Secondary.Emitted
	}
	return n
}

// Compositor draws frames onto a renderer.
type Compositor struct {
	renderer render.Renderer
	opts     Options
	logger   logging.Logger
	clock    clock.Clock

	primary, secondary *pointcloud.PointCloud
	rigTransform       spatialmath.Transform
}

// NewCompositor returns a compositor drawing onto r. Zero options take their defaults.
func NewCompositor(r render.Renderer, opts Options, logger logging.Logger) *Compositor {
	def := DefaultOptions()
	if opts.Stride < 1 {
		opts.Stride = def.Stride
	}
	if opts.PointSize <= 0 {
		opts.PointSize = def.PointSize
	}
	if opts.MountCenter == 0 {
		opts.MountCenter = def.MountCenter
	}
	if opts.PrimaryPlaceholder == (color.NRGBA{}) {
		opts.PrimaryPlaceholder = def.PrimaryPlaceholder
	}
	if opts.SecondaryPlaceholder == (color.NRGBA{}) {
		opts.SecondaryPlaceholder = def.SecondaryPlaceholder
	}
	return &Compositor{
		renderer:     r,
		opts:         opts,
		logger:       logger,
		clock:        clock.New(),
		rigTransform: spatialmath.NewIdentity(),
	}
}

// SetClock replaces the clock used to time frames.
func (c *Compositor) SetClock(clk clock.Clock) {
	c.clock = clk
}

// Options returns the options in effect.
func (c *Compositor) Options() Options {
	return c.opts
}

// SetPointSize changes the size clouds are drawn at. Non-positive sizes are ignored.
func (c *Compositor) SetPointSize(size float64) {
	if size > 0 {
		c.opts.PointSize = size
	}
}

// SetPlaceholders changes the tints used when clouds are not drawn in sensor color.
func (c *Compositor) SetPlaceholders(primary, secondary color.NRGBA) {
	c.opts.PrimaryPlaceholder = primary
	c.opts.SecondaryPlaceholder = secondary
}

// MountTransform flips a sensor-local cloud upright and recentres it, since unprojected
// points have y down and z away from the viewer.
func (c *Compositor) MountTransform() spatialmath.Transform {
	return spatialmath.NewScale(1, -1, -1).
		Then(spatialmath.NewTranslation(r3.Vector{Z: -c.opts.MountCenter}))
}

// RenderFrame runs one tick. A sensor that fails to latch is logged and contributes an
// empty cloud; only stack errors and context cancellation fail the frame.
func (c *Compositor) RenderFrame(ctx context.Context, f Frame) (Stats, error) {
	start := c.clock.Now()
	var stats Stats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if f.Primary == nil {
		return stats, errors.New("a primary sensor is required")
	}
	secondary := f.Secondary != nil && f.Rig != nil

	// acquire
	stats.Primary.Latched = c.latch(ctx, f.Primary)
	if secondary {
		stats.Secondary = &CloudStats{Latched: c.latch(ctx, f.Secondary)}
	}

	// sample
	c.primary = c.sample(f.Primary, stats.Primary.Latched, f.UseColor, c.opts.PrimaryPlaceholder, &stats.Primary)
	c.secondary = nil
	if secondary {
		c.secondary = c.sample(f.Secondary, stats.Secondary.Latched, f.UseColor, c.opts.SecondaryPlaceholder, stats.Secondary)
		c.rigTransform = f.Rig.ComposeTransform()
	}

	// orient
	mode := viewport.Free
	if f.View != nil {
		mode = f.View.Resolve()
	}
	stats.Mode = mode
	cam := f.Camera
	if cam == nil {
		cam = viewport.NewCamera()
	}

	r := c.renderer
	before := r.Depth()
	r.BeginCamera(cam)
	err := spatialmath.Scoped(r, mode.PreRotation(), func() error {
		if err := c.drawCloud(c.primary, c.opts.PrimaryPlaceholder, nil); err != nil {
			return errors.Wrap(err, PhaseDrawPrimary.String())
		}
		if !secondary {
			return nil
		}
		pivot := f.Rig.Parameters().PivotHeight
		return errors.Wrap(f.Rig.ApplyAndRestore(r, func() error {
			return c.drawCloud(c.secondary, c.opts.SecondaryPlaceholder, &pivot)
		}), PhaseDrawSecondary.String())
	})
	r.EndCamera()

	stats.Elapsed = c.clock.Since(start)
	if errors.Is(err, spatialmath.ErrStackUnderflow) {
		return stats, errors.Wrap(ErrUnbalancedStack, err.Error())
	}
	if err != nil {
		return stats, err
	}
	if after := r.Depth(); after != before {
		return stats, errors.Wrapf(ErrUnbalancedStack, "depth %d before, %d after", before, after)
	}
	return stats, nil
}

func (c *Compositor) latch(ctx context.Context, s sensor.Sensor) bool {
	if err := s.Latch(ctx); err != nil {
		c.logger.Warnw("sensor failed to latch a frame, drawing no points", "sensor", s.Name(), "error", err)
		return false
	}
	return true
}

func (c *Compositor) sample(s sensor.Sensor, latched, useColor bool, placeholder color.NRGBA, stats *CloudStats) *pointcloud.PointCloud {
	if !latched {
		return pointcloud.New()
	}
	depth, colors, world := sensor.Frames(s)
	stats.Candidates = pointcloud.CandidateCount(depth.Width(), depth.Height(), c.opts.Stride)
	cloud := pointcloud.Sample(depth, colors, pointcloud.SampleOptions{
		Stride:      c.opts.Stride,
		UseColor:    useColor,
		Placeholder: placeholder,
		World:       world,
	})
	stats.Emitted = cloud.Size()
	return cloud
}

func (c *Compositor) drawCloud(cloud *pointcloud.PointCloud, tint color.NRGBA, pivotHeight *int) error {
	r := c.renderer
	return spatialmath.Scoped(r, c.MountTransform(), func() error {
		r.SetColor(tint)
		r.DrawLine(r3.Vector{}, r3.Vector{Z: AxisLength})
		r.DrawBox(MarkerBox)
		if pivotHeight != nil {
			r.DrawSphere(r3.Vector{Z: float64(*pivotHeight)}, PivotRadius)
		}
		r.SetPointSize(c.opts.PointSize)
		render.WithDepthTest(r, func() {
			r.DrawPoints(cloud)
		})
		return nil
	})
}

// Clouds returns the sensor-local clouds sampled by the last frame. The secondary cloud is
// nil when the last frame had no secondary sensor.
func (c *Compositor) Clouds() (primary, secondary *pointcloud.PointCloud) {
	return c.primary, c.secondary
}

// MergedCloud returns the clouds of the last frame in scene space, as drawn before the
// view rotation: mounted, and for the secondary cloud placed by the rig.
func (c *Compositor) MergedCloud() *pointcloud.PointCloud {
	mount := c.MountTransform()
	merged := c.primary.Transformed(mount)
	if c.secondary != nil {
		merged = pointcloud.Merge(merged, c.secondary.Transformed(c.rigTransform.Then(mount)))
	}
	return merged
}
