// Package input turns key presses and slider moves into viewer commands.
package input

import (
	"fmt"
)

// Command is something the viewer does in response to input.
type Command int

// The viewer commands.
const (
	CommandNone Command = iota
	CommandSave
	CommandLoad
	CommandTopView
	CommandSideView
	CommandFreeView
	CommandToggleColor
	CommandFreeze
	CommandExport
	CommandToggleOrtho
	CommandOrbitLeft
	CommandOrbitRight
	CommandOrbitUp
	CommandOrbitDown
	CommandZoomIn
	CommandZoomOut
	CommandResetCamera
	CommandPanLeft
	CommandPanRight
	CommandPanUp
	CommandPanDown
	CommandDollyIn
	CommandDollyOut
	CommandTruckLeft
	CommandTruckRight
	CommandBoomUp
	CommandBoomDown
	CommandRotateLeft
	CommandRotateRight
	CommandTiltUp
	CommandTiltDown
	CommandPivotUp
	CommandPivotDown
	CommandPointSizeUp
	CommandPointSizeDown
	CommandQuit
)

var commandNames = map[Command]string{
	CommandNone:          "none",
	CommandSave:          "save",
	CommandLoad:          "load",
	CommandTopView:       "top_view",
	CommandSideView:      "side_view",
	CommandFreeView:      "free_view",
	CommandToggleColor:   "toggle_color",
	CommandFreeze:        "freeze",
	CommandExport:        "export",
	CommandToggleOrtho:   "toggle_ortho",
	CommandOrbitLeft:     "orbit_left",
	CommandOrbitRight:    "orbit_right",
	CommandOrbitUp:       "orbit_up",
	CommandOrbitDown:     "orbit_down",
	CommandZoomIn:        "zoom_in",
	CommandZoomOut:       "zoom_out",
	CommandResetCamera:   "reset_camera",
	CommandPanLeft:       "pan_left",
	CommandPanRight:      "pan_right",
	CommandPanUp:         "pan_up",
	CommandPanDown:       "pan_down",
	CommandDollyIn:       "dolly_in",
	CommandDollyOut:      "dolly_out",
	CommandTruckLeft:     "truck_left",
	CommandTruckRight:    "truck_right",
	CommandBoomUp:        "boom_up",
	CommandBoomDown:      "boom_down",
	CommandRotateLeft:    "rotate_left",
	CommandRotateRight:   "rotate_right",
	CommandTiltUp:        "tilt_up",
	CommandTiltDown:      "tilt_down",
	CommandPivotUp:       "pivot_up",
	CommandPivotDown:     "pivot_down",
	CommandPointSizeUp:   "point_size_up",
	CommandPointSizeDown: "point_size_down",
	CommandQuit:          "quit",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// KeyEvent is a single key press.
type KeyEvent struct {
	Key rune
}

// DefaultKeyMap binds keys to commands.
var DefaultKeyMap = KeyMap{
	's': CommandSave,
	'l': CommandLoad,
	't': CommandTopView,
	'v': CommandSideView,
	'f': CommandFreeView,
	'c': CommandToggleColor,
	'z': CommandFreeze,
	'e': CommandExport,
	'o': CommandToggleOrtho,
	'a': CommandOrbitLeft,
	'd': CommandOrbitRight,
	'w': CommandOrbitUp,
	'x': CommandOrbitDown,
	'+': CommandZoomIn,
	'=': CommandZoomIn,
	'-': CommandZoomOut,
	'r': CommandResetCamera,
	'H': CommandPanLeft,
	'L': CommandPanRight,
	'K': CommandPanUp,
	'J': CommandPanDown,
	// rig sliders, in pairs
	'i': CommandDollyIn,
	'k': CommandDollyOut,
	'j': CommandTruckLeft,
	'u': CommandTruckRight,
	'y': CommandBoomUp,
	'h': CommandBoomDown,
	'n': CommandRotateLeft,
	'm': CommandRotateRight,
	'b': CommandTiltUp,
	'g': CommandTiltDown,
	']': CommandPivotUp,
	'[': CommandPivotDown,
	'>': CommandPointSizeUp,
	'<': CommandPointSizeDown,
	'q': CommandQuit,
	// ctrl-c arrives as a byte in raw mode
	3: CommandQuit,
}

// KeyMap maps key presses to commands.
type KeyMap map[rune]Command

// Command returns the command bound to ev, or CommandNone.
func (km KeyMap) Command(ev KeyEvent) Command {
	if cmd, ok := km[ev.Key]; ok {
		return cmd
	}
	return CommandNone
}

// SliderEvent sets a named slider to a value. The receiver clamps it.
type SliderEvent struct {
	Name  string
	Value float64
}

// EventType distinguishes the kinds of input events.
type EventType uint8

// Event types.
const (
	KeyPress EventType = iota + 1
	SliderChange
)

// Event is a key press or a slider move.
type Event struct {
	Type   EventType
	Key    KeyEvent
	Slider SliderEvent
}

// NewKeyPress returns the event for pressing key.
func NewKeyPress(key rune) Event {
	return Event{Type: KeyPress, Key: KeyEvent{Key: key}}
}

// NewSliderChange returns the event for moving a slider.
func NewSliderChange(name string, value float64) Event {
	return Event{Type: SliderChange, Slider: SliderEvent{Name: name, Value: value}}
}

// Drain returns every event already waiting on ch without blocking.
func Drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
