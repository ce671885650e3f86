package spatialmath

import (
	"github.com/pkg/errors"
)

// ErrStackUnderflow is returned when popping a stack that has no pushed frame left.
var ErrStackUnderflow = errors.New("transform stack underflow")

// MatrixStack is anything holding a push/mult/pop model transform stack, such as a renderer.
type MatrixStack interface {
	PushMatrix()
	MultMatrix(t Transform)
	PopMatrix() error
	// Depth returns the number of outstanding pushes.
	Depth() int
}

// Stack is a LIFO stack of model transforms. The bottom entry is the identity and can
// never be popped. Not safe for concurrent use; it lives for a single render tick.
type Stack struct {
	frames []Transform
}

// NewStack returns a stack holding only the identity.
func NewStack() *Stack {
	return &Stack{frames: []Transform{NewIdentity()}}
}

// PushMatrix duplicates the current top so later multiplications can be undone.
func (s *Stack) PushMatrix() {
	s.frames = append(s.frames, s.Top())
}

// PopMatrix discards the top frame.
func (s *Stack) PopMatrix() error {
	if len(s.frames) <= 1 {
		return ErrStackUnderflow
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// MultMatrix post-multiplies the top frame by t.
func (s *Stack) MultMatrix(t Transform) {
	top := len(s.frames) - 1
	s.frames[top] = s.frames[top].Then(t)
}

// Top returns the current accumulated transform.
func (s *Stack) Top() Transform {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of outstanding pushes.
func (s *Stack) Depth() int {
	return len(s.frames) - 1
}

// Reset drops every pushed frame and restores the identity.
func (s *Stack) Reset() {
	s.frames = append(s.frames[:0], NewIdentity())
}

// Scoped pushes ms, applies t, runs fn and pops again. The pop happens on every exit path
// of fn, including a panic, so the caller's frame is always restored. Pushes fn forgot to
// pop are unwound as well.
func Scoped(ms MatrixStack, t Transform, fn func() error) (err error) {
	ms.PushMatrix()
	ms.MultMatrix(t)
	depth := ms.Depth()
	defer func() {
		if ms.Depth() < depth {
			if err == nil {
				err = errors.Wrap(ErrStackUnderflow, "scoped draw popped its parent frame")
			}
			return
		}
		for ms.Depth() >= depth {
			if popErr := ms.PopMatrix(); popErr != nil {
				if err == nil {
					err = popErr
				}
				return
			}
		}
	}()
	return fn()
}
