package engine

import (
	"github.com/wehubfusion/Fabula/pkg/errors"
)

// Frame records one pending cross-file jump: the file that was left and the
// id of the jump node within it. A later return resumes at that node's first
// output.
type Frame struct {
	File   string `json:"file"`
	NodeID int    `json:"nodeId"`
}

// ReturnStack is the LIFO of pending cross-file jumps. Single-writer: only
// the session driving the engine pushes and pops.
type ReturnStack struct {
	frames []Frame
}

// NewReturnStack creates an empty return stack.
func NewReturnStack() *ReturnStack {
	return &ReturnStack{}
}

// Push records a jump-out point.
func (s *ReturnStack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes and returns the most recent jump-out point. Popping an empty
// stack is a caller error.
func (s *ReturnStack) Pop() (Frame, error) {
	if len(s.frames) == 0 {
		return Frame{}, errors.ErrEmptyReturnStack
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, nil
}

// Len returns the number of pending jumps.
func (s *ReturnStack) Len() int { return len(s.frames) }

// Frames returns a copy of the stack, oldest first.
func (s *ReturnStack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
