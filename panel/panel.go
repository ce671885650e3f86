// Package panel holds the user facing settings of the viewer: toggles and sliders that
// drive the rig, the view and the cloud colors, persisted as a YAML settings file.
package panel

import (
	"image/color"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/rig"
	"go.viam.com/rigview/utils"
	"go.viam.com/rigview/viewport"
)

// DefaultSettingsFile is where settings are saved when no path is configured.
const DefaultSettingsFile = "settings.yaml"

// Slider names accepted by SetSlider.
const (
	SliderDolly       = "dolly"
	SliderTruck       = "truck"
	SliderBoom        = "boom"
	SliderRotate      = "rotate"
	SliderTilt        = "tilt"
	SliderPivotHeight = "pivot_height"
	SliderPointSize   = "point_size"
)

// Point size range in pixels.
const (
	MinPointSize = 1.0
	MaxPointSize = 10.0
)

// Settings is the persisted state of the panel.
type Settings struct {
	UseColor      bool           `yaml:"use_color"`
	TopView       bool           `yaml:"top_view"`
	SideView      bool           `yaml:"side_view"`
	Ortho         bool           `yaml:"ortho"`
	PointSize     float64        `yaml:"point_size"`
	PrimaryTint   string         `yaml:"primary_tint"`
	SecondaryTint string         `yaml:"secondary_tint"`
	Rig           rig.Parameters `yaml:"rig"`
}

// DefaultSettings are the settings of a fresh panel.
func DefaultSettings() Settings {
	return Settings{
		PointSize:     3,
		PrimaryTint:   "#969696",
		SecondaryTint: "#c8c832",
	}
}

// Validate reports tints that do not parse and values out of range.
func (s Settings) Validate() error {
	var err error
	if _, terr := ParseTint(s.PrimaryTint); terr != nil {
		err = multierr.Append(err, errors.Wrap(terr, "primary_tint"))
	}
	if _, terr := ParseTint(s.SecondaryTint); terr != nil {
		err = multierr.Append(err, errors.Wrap(terr, "secondary_tint"))
	}
	if math.IsNaN(s.PointSize) || s.PointSize < MinPointSize || s.PointSize > MaxPointSize {
		err = multierr.Append(err, errors.Errorf("point_size %v out of range [%v, %v]", s.PointSize, MinPointSize, MaxPointSize))
	}
	return multierr.Combine(err, s.Rig.Validate())
}

// ParseTint parses a "#rrggbb" color.
func ParseTint(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(err, "bad tint %q", hex)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{r, g, b, 255}, nil
}

// ClampPointSize forces a point size into range. NaN becomes the default size.
func ClampPointSize(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultSettings().PointSize
	}
	return lo.Clamp(v, MinPointSize, MaxPointSize)
}

// TintHex formats a color for the settings file.
func TintHex(c color.NRGBA) string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

// Panel is the live settings state. Changes to view toggles and the freeze button are
// queued and handed to the rig and view controller by Apply.
type Panel struct {
	s            Settings
	viewRequests []viewport.Request
	freeze       bool
	logger       logging.Logger
}

// New returns a panel with default settings.
func New(logger logging.Logger) *Panel {
	return &Panel{s: DefaultSettings(), logger: logger}
}

// Settings returns a copy of the current settings.
func (p *Panel) Settings() Settings {
	return p.s
}

// UseColor reports whether clouds use sensor color.
func (p *Panel) UseColor() bool {
	return p.s.UseColor
}

// SetUseColor selects sensor color or the placeholder tints.
func (p *Panel) SetUseColor(on bool) {
	p.s.UseColor = on
}

// ToggleUseColor flips the color toggle.
func (p *Panel) ToggleUseColor() {
	p.s.UseColor = !p.s.UseColor
}

// SetTopView toggles the top view.
func (p *Panel) SetTopView(on bool) {
	p.s.TopView = on
	p.viewRequests = append(p.viewRequests, viewport.Request{Mode: viewport.Top, On: on})
}

// SetSideView toggles the side view.
func (p *Panel) SetSideView(on bool) {
	p.s.SideView = on
	p.viewRequests = append(p.viewRequests, viewport.Request{Mode: viewport.Side, On: on})
}

// SetFreeView clears both fixed views.
func (p *Panel) SetFreeView() {
	p.s.TopView, p.s.SideView = false, false
	p.viewRequests = append(p.viewRequests, viewport.Request{Mode: viewport.Free, On: true})
}

// ToggleOrtho flips the camera between orthographic and perspective.
func (p *Panel) ToggleOrtho() {
	p.s.Ortho = !p.s.Ortho
}

// RequestFreeze presses the freeze motion button.
func (p *Panel) RequestFreeze() {
	p.freeze = true
}

// Tints returns the parsed placeholder colors. Unparseable tints fall back to the given
// defaults.
func (p *Panel) Tints(primary, secondary color.NRGBA) (color.NRGBA, color.NRGBA) {
	if c, err := ParseTint(p.s.PrimaryTint); err == nil {
		primary = c
	}
	if c, err := ParseTint(p.s.SecondaryTint); err == nil {
		secondary = c
	}
	return primary, secondary
}

// SetTints sets the placeholder colors.
func (p *Panel) SetTints(primary, secondary color.NRGBA) {
	p.s.PrimaryTint = TintHex(primary)
	p.s.SecondaryTint = TintHex(secondary)
}

// SetRig replaces the rig sliders, clamping each.
func (p *Panel) SetRig(params rig.Parameters) {
	p.s.Rig = params.Clamp()
}

// SetSlider moves a named slider; the value is clamped to the slider's range.
func (p *Panel) SetSlider(name string, value float64) error {
	r := &p.s.Rig
	switch name {
	case SliderDolly:
		r.Dolly = rig.ClampTranslation(value)
	case SliderTruck:
		r.Truck = rig.ClampTranslation(value)
	case SliderBoom:
		r.Boom = rig.ClampTranslation(value)
	case SliderRotate:
		r.Rotate = rig.ClampRotation(value)
	case SliderTilt:
		r.Tilt = rig.ClampRotation(value)
	case SliderPivotHeight:
		r.PivotHeight = rig.ClampPivot(value)
	case SliderPointSize:
		p.s.PointSize = ClampPointSize(value)
	default:
		return errors.Errorf("unknown slider %q", name)
	}
	return nil
}

// NudgeSlider moves a named slider by delta.
func (p *Panel) NudgeSlider(name string, delta float64) error {
	r := p.s.Rig
	var current float64
	switch name {
	case SliderDolly:
		current = r.Dolly
	case SliderTruck:
		current = r.Truck
	case SliderBoom:
		current = r.Boom
	case SliderRotate:
		current = r.Rotate
	case SliderTilt:
		current = r.Tilt
	case SliderPivotHeight:
		current = float64(r.PivotHeight)
	case SliderPointSize:
		current = p.s.PointSize
	default:
		return errors.Errorf("unknown slider %q", name)
	}
	return p.SetSlider(name, current+delta)
}

// Apply hands the panel state to the rig, the view controller and the camera. Queued view
// toggles are raised in order and a pressed freeze button becomes a freeze request.
func (p *Panel) Apply(r *rig.Rig, view *viewport.Controller, cam *viewport.Camera) {
	if r != nil {
		r.SetParameters(p.s.Rig)
		if p.freeze {
			r.RequestFreeze()
		}
	}
	p.freeze = false
	if view != nil {
		for _, req := range p.viewRequests {
			switch req.Mode {
			case viewport.Top:
				view.SetTop(req.On)
			case viewport.Side:
				view.SetSide(req.On)
			default:
				view.SetFree()
			}
		}
	}
	p.viewRequests = p.viewRequests[:0]
	if cam != nil {
		cam.Ortho = p.s.Ortho
	}
}

// Sync pulls state decided elsewhere back into the panel, so a frozen rig shows zeroed
// sliders and only the active view's toggle stays on.
func (p *Panel) Sync(r *rig.Rig, view *viewport.Controller) {
	if r != nil {
		p.s.Rig = r.Parameters()
	}
	if view != nil {
		mode := view.Resolve()
		p.s.TopView = mode == viewport.Top
		p.s.SideView = mode == viewport.Side
	}
}

// SaveToFile writes the settings as YAML.
func (p *Panel) SaveToFile(path string) error {
	data, err := yaml.Marshal(p.s)
	if err != nil {
		return err
	}
	return errors.Wrapf(utils.WriteFileAtomic(path, data, 0o600), "saving settings to %q", path)
}

// LoadFromFile replaces the settings with those in path. Out of range values are clamped
// and bad tints keep their current value, both with a warning. On a read or decode failure
// nothing changes.
func (p *Panel) LoadFromFile(path string) error {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "loading settings from %q", path)
	}
	loaded := p.s
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return errors.Wrapf(err, "decoding settings from %q", path)
	}
	if verr := loaded.Validate(); verr != nil {
		p.logger.Warnw("fixing invalid settings", "path", path, "error", verr)
		if _, err := ParseTint(loaded.PrimaryTint); err != nil {
			loaded.PrimaryTint = p.s.PrimaryTint
		}
		if _, err := ParseTint(loaded.SecondaryTint); err != nil {
			loaded.SecondaryTint = p.s.SecondaryTint
		}
		loaded.PointSize = ClampPointSize(loaded.PointSize)
		loaded.Rig = loaded.Rig.Clamp()
	}

	p.s = loaded
	switch {
	case loaded.TopView && loaded.SideView:
		// hand edited; raise both in toggle order
		p.SetTopView(true)
		p.SetSideView(true)
	case loaded.TopView:
		p.SetTopView(true)
	case loaded.SideView:
		p.SetSideView(true)
	default:
		p.SetFreeView()
	}
	return nil
}
