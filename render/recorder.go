package render

import (
	"image/color"

	"github.com/golang/geo/r3"

	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/spatialmath"
	"go.viam.com/rigview/viewport"
)

// Op names a recorded renderer call.
type Op string

// Recorded operations.
const (
	OpPush        Op = "push"
	OpPop         Op = "pop"
	OpMult        Op = "mult"
	OpColor       Op = "color"
	OpPointSize   Op = "point_size"
	OpDepthOn     Op = "depth_on"
	OpDepthOff    Op = "depth_off"
	OpPoints      Op = "points"
	OpLine        Op = "line"
	OpBox         Op = "box"
	OpSphere      Op = "sphere"
	OpBeginCamera Op = "begin_camera"
	OpEndCamera   Op = "end_camera"
)

// Call is one recorded renderer call with the state it ran under.
type Call struct {
	Op Op
	// Model is the top of the transform stack when the call was made.
	Model     spatialmath.Transform
	Depth     int
	DepthTest bool
	Color     color.NRGBA
	PointSize float64
	Cloud     *pointcloud.PointCloud
	Args      []r3.Vector
	Radius    float64
}

// Recorder is a Renderer that draws nothing and remembers every call.
type Recorder struct {
	stack     *spatialmath.Stack
	color     color.NRGBA
	pointSize float64
	depthTest bool
	cameras   int

	Calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{stack: spatialmath.NewStack(), pointSize: 1}
}

func (r *Recorder) record(c Call) {
	c.Model = r.stack.Top()
	c.Depth = r.stack.Depth()
	c.DepthTest = r.depthTest
	c.Color = r.color
	c.PointSize = r.pointSize
	r.Calls = append(r.Calls, c)
}

// Reset forgets all calls and state.
func (r *Recorder) Reset() {
	*r = *NewRecorder()
}

// Filter returns the recorded calls of the given op, in order.
func (r *Recorder) Filter(op Op) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CameraDepth returns how many BeginCamera calls are still open.
func (r *Recorder) CameraDepth() int {
	return r.cameras
}

// DepthTestEnabled reports the current depth test state.
func (r *Recorder) DepthTestEnabled() bool {
	return r.depthTest
}

// PushMatrix implements spatialmath.MatrixStack.
func (r *Recorder) PushMatrix() {
	r.stack.PushMatrix()
	r.record(Call{Op: OpPush})
}

// MultMatrix implements spatialmath.MatrixStack.
func (r *Recorder) MultMatrix(t spatialmath.Transform) {
	r.stack.MultMatrix(t)
	r.record(Call{Op: OpMult})
}

// PopMatrix implements spatialmath.MatrixStack.
func (r *Recorder) PopMatrix() error {
	if err := r.stack.PopMatrix(); err != nil {
		return err
	}
	r.record(Call{Op: OpPop})
	return nil
}

// Depth implements spatialmath.MatrixStack.
func (r *Recorder) Depth() int {
	return r.stack.Depth()
}

// SetColor sets the color of subsequent primitives.
func (r *Recorder) SetColor(c color.NRGBA) {
	r.color = c
	r.record(Call{Op: OpColor})
}

// SetPointSize sets the size of drawn points.
func (r *Recorder) SetPointSize(size float64) {
	r.pointSize = size
	r.record(Call{Op: OpPointSize})
}

// EnableDepthTest turns the depth test on.
func (r *Recorder) EnableDepthTest() {
	r.depthTest = true
	r.record(Call{Op: OpDepthOn})
}

// DisableDepthTest turns the depth test off.
func (r *Recorder) DisableDepthTest() {
	r.depthTest = false
	r.record(Call{Op: OpDepthOff})
}

// DrawPoints records the cloud.
func (r *Recorder) DrawPoints(cloud *pointcloud.PointCloud) {
	r.record(Call{Op: OpPoints, Cloud: cloud})
}

// DrawLine records a line.
func (r *Recorder) DrawLine(from, to r3.Vector) {
	r.record(Call{Op: OpLine, Args: []r3.Vector{from, to}})
}

// DrawBox records a box.
func (r *Recorder) DrawBox(size r3.Vector) {
	r.record(Call{Op: OpBox, Args: []r3.Vector{size}})
}

// DrawSphere records a sphere.
func (r *Recorder) DrawSphere(center r3.Vector, radius float64) {
	r.record(Call{Op: OpSphere, Args: []r3.Vector{center}, Radius: radius})
}

// BeginCamera records the start of a camera pass.
func (r *Recorder) BeginCamera(cam *viewport.Camera) {
	r.cameras++
	r.record(Call{Op: OpBeginCamera})
}

// EndCamera records the end of a camera pass.
func (r *Recorder) EndCamera() {
	r.cameras--
	r.record(Call{Op: OpEndCamera})
}
