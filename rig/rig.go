// Package rig positions the secondary sensor's cloud in the primary sensor's frame with a
// virtual camera rig: dolly, truck and boom translate it, rotate swings it about a vertical
// axis through the pivot and tilt pitches it about its own X axis.
package rig

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/rigview/spatialmath"
)

// Parameter ranges. Controls are unitless and scaled to physical units by a Scale.
const (
	TranslationMin = -2.0
	TranslationMax = 2.0
	RotationMin    = -1.0
	RotationMax    = 1.0
	PivotMin       = 0
	PivotMax       = 5000
)

// Parameters are the rig controls. Each field is clamped independently.
type Parameters struct {
	Dolly       float64 `json:"dolly" yaml:"dolly"`
	Truck       float64 `json:"truck" yaml:"truck"`
	Boom        float64 `json:"boom" yaml:"boom"`
	Rotate      float64 `json:"rotate" yaml:"rotate"`
	Tilt        float64 `json:"tilt" yaml:"tilt"`
	PivotHeight int     `json:"pivot_height" yaml:"pivot_height"`
}

// ClampTranslation forces a dolly, truck or boom value into range. NaN becomes 0.
func ClampTranslation(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, TranslationMin, TranslationMax)
}

// ClampRotation forces a rotate or tilt value into range. NaN becomes 0.
func ClampRotation(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, RotationMin, RotationMax)
}

// ClampPivot forces a pivot height in millimeters into range. NaN becomes PivotMin.
func ClampPivot(v float64) int {
	if math.IsNaN(v) {
		return PivotMin
	}
	return int(lo.Clamp(v, PivotMin, PivotMax))
}

// Clamp returns p with every field forced into its range.
func (p Parameters) Clamp() Parameters {
	return Parameters{
		Dolly:       ClampTranslation(p.Dolly),
		Truck:       ClampTranslation(p.Truck),
		Boom:        ClampTranslation(p.Boom),
		Rotate:      ClampRotation(p.Rotate),
		Tilt:        ClampRotation(p.Tilt),
		PivotHeight: lo.Clamp(p.PivotHeight, PivotMin, PivotMax),
	}
}

// Validate reports every field outside its range, NaN included.
func (p Parameters) Validate() error {
	var err error
	check := func(name string, v, lower, upper float64) {
		if math.IsNaN(v) || v < lower || v > upper {
			err = multierr.Append(err, errors.Errorf("%s %v out of range [%v, %v]", name, v, lower, upper))
		}
	}
	check("dolly", p.Dolly, TranslationMin, TranslationMax)
	check("truck", p.Truck, TranslationMin, TranslationMax)
	check("boom", p.Boom, TranslationMin, TranslationMax)
	check("rotate", p.Rotate, RotationMin, RotationMax)
	check("tilt", p.Tilt, RotationMin, RotationMax)
	check("pivot_height", float64(p.PivotHeight), PivotMin, PivotMax)
	return err
}

// Scale converts control values into millimeters and degrees.
type Scale struct {
	TranslationMM float64 `json:"translation_mm"`
	RotationDeg   float64 `json:"rotation_deg"`
}

// DefaultScale maps a unit of translation to a meter and a unit of rotation to half a turn.
func DefaultScale() Scale {
	return Scale{TranslationMM: 1000, RotationDeg: 180}
}

// Rig holds the current parameters and a pending freeze request. It is owned by the render
// loop and not safe for concurrent use.
type Rig struct {
	params        Parameters
	scale         Scale
	freezePending bool
}

// New returns a rig at rest with the given scale. A zero scale component uses the default.
func New(scale Scale) *Rig {
	def := DefaultScale()
	if scale.TranslationMM == 0 {
		scale.TranslationMM = def.TranslationMM
	}
	if scale.RotationDeg == 0 {
		scale.RotationDeg = def.RotationDeg
	}
	return &Rig{scale: scale}
}

// Parameters returns the current parameters.
func (r *Rig) Parameters() Parameters {
	return r.params
}

// Scale returns the unit conversion of the rig.
func (r *Rig) Scale() Scale {
	return r.scale
}

// SetParameters replaces all parameters, clamping each.
func (r *Rig) SetParameters(p Parameters) {
	r.params = p.Clamp()
}

// SetDolly moves along the rig's Z axis.
func (r *Rig) SetDolly(v float64) {
	r.params.Dolly = ClampTranslation(v)
}

// SetTruck moves along the rig's X axis.
func (r *Rig) SetTruck(v float64) {
	r.params.Truck = ClampTranslation(v)
}

// SetBoom moves along the rig's Y axis.
func (r *Rig) SetBoom(v float64) {
	r.params.Boom = ClampTranslation(v)
}

// SetRotate sets the swing about the vertical axis through the pivot.
func (r *Rig) SetRotate(v float64) {
	r.params.Rotate = ClampRotation(v)
}

// SetTilt sets the pitch about the rig's X axis.
func (r *Rig) SetTilt(v float64) {
	r.params.Tilt = ClampRotation(v)
}

// SetPivotHeight sets the height of the rotate pivot in millimeters.
func (r *Rig) SetPivotHeight(v int) {
	r.params.PivotHeight = lo.Clamp(v, PivotMin, PivotMax)
}

// FreezeMotion zeroes the five motion controls. The pivot height is kept.
func (r *Rig) FreezeMotion() {
	r.params.Dolly = 0
	r.params.Truck = 0
	r.params.Boom = 0
	r.params.Rotate = 0
	r.params.Tilt = 0
}

// RequestFreeze asks the next Update to freeze motion.
func (r *Rig) RequestFreeze() {
	r.freezePending = true
}

// FreezePending reports whether a freeze request is waiting for Update.
func (r *Rig) FreezePending() bool {
	return r.freezePending
}

// Update honours a pending freeze request once and clears it. It reports whether the rig
// was frozen.
func (r *Rig) Update() bool {
	if !r.freezePending {
		return false
	}
	r.freezePending = false
	r.FreezeMotion()
	return true
}

// Pivot returns the rotate pivot in rig-local millimeters.
func (r *Rig) Pivot() r3.Vector {
	return r3.Vector{Y: float64(r.params.PivotHeight)}
}

// ComposeTransform builds the rig transform. Each step is expressed in the frame left by
// the previous one: dolly, truck, boom, rotate about the pivot, then tilt.
func (r *Rig) ComposeTransform() spatialmath.Transform {
	p := r.params
	mm := r.scale.TranslationMM
	deg := r.scale.RotationDeg
	return spatialmath.NewTranslation(r3.Vector{Z: p.Dolly * mm}).
		Then(spatialmath.NewTranslation(r3.Vector{X: p.Truck * mm})).
		Then(spatialmath.NewTranslation(r3.Vector{Y: p.Boom * mm})).
		Then(spatialmath.NewRotationAbout(r.Pivot(), spatialmath.YAxis, p.Rotate*deg)).
		Then(spatialmath.NewRotation(spatialmath.XAxis, p.Tilt*deg))
}

// ApplyAndRestore multiplies the rig transform onto ms for the duration of draw. The stack
// is restored on every exit path, including a panic in draw.
func (r *Rig) ApplyAndRestore(ms spatialmath.MatrixStack, draw func() error) error {
	return spatialmath.Scoped(ms, r.ComposeTransform(), draw)
}
