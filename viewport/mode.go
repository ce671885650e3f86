// Package viewport decides where the scene is seen from: a fixed top or side view, or the
// free orbit camera.
package viewport

import (
	"fmt"

	"go.viam.com/rigview/spatialmath"
)

// Mode is the active view. Exactly one mode is active at a time.
type Mode int

// The view modes.
const (
	Free Mode = iota
	Top
	Side
)

func (m Mode) String() string {
	switch m {
	case Free:
		return "free"
	case Top:
		return "top"
	case Side:
		return "side"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// PreRotation returns the rotation applied to the whole scene before drawing: a quarter turn
// about X for the top view and about Y for the side view.
func (m Mode) PreRotation() spatialmath.Transform {
	switch m {
	case Top:
		return spatialmath.NewRotation(spatialmath.XAxis, 90)
	case Side:
		return spatialmath.NewRotation(spatialmath.YAxis, 90)
	default:
		return spatialmath.NewIdentity()
	}
}

// Request is a toggle raised by the user: turn Mode on or off.
type Request struct {
	Mode Mode
	On   bool
}

// Next is the view transition function. Turning a mode on makes it active and so turns the
// other fixed view off. Turning the active mode off returns to Free; turning an inactive
// mode off changes nothing.
func Next(current Mode, req Request) Mode {
	if req.On {
		return req.Mode
	}
	if current == req.Mode {
		return Free
	}
	return current
}

// Controller accumulates view requests and resolves them in the order they were raised,
// so several toggles arriving in one tick converge on the last one.
type Controller struct {
	mode    Mode
	pending []Request
}

// NewController returns a controller in the free view.
func NewController() *Controller {
	return &Controller{}
}

// SetTop requests the top view on or off.
func (c *Controller) SetTop(on bool) {
	c.pending = append(c.pending, Request{Mode: Top, On: on})
}

// SetSide requests the side view on or off.
func (c *Controller) SetSide(on bool) {
	c.pending = append(c.pending, Request{Mode: Side, On: on})
}

// SetFree requests the free view, dropping any fixed view.
func (c *Controller) SetFree() {
	c.pending = append(c.pending, Request{Mode: Free, On: true})
}

// Tick applies every pending request and reports whether the mode changed.
func (c *Controller) Tick() bool {
	before := c.mode
	for _, req := range c.pending {
		c.mode = Next(c.mode, req)
	}
	c.pending = c.pending[:0]
	return c.mode != before
}

// Resolve applies pending requests and returns the active mode.
func (c *Controller) Resolve() Mode {
	c.Tick()
	return c.mode
}

// Mode returns the active mode as of the last Tick, ignoring pending requests.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Top reports whether the top view was active as of the last Tick.
func (c *Controller) Top() bool {
	return c.mode == Top
}

// Side reports whether the side view was active as of the last Tick.
func (c *Controller) Side() bool {
	return c.mode == Side
}
