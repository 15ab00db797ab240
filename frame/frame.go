// Package frame holds the colour frame shared between the simulation and render
// goroutines and the handoff protocol that guards it.
package frame

import "github.com/pthm-cable/fluidpanel/fluid"

// Color selects one colour channel of a Frame.
type Color uint8

const (
	Red Color = iota
	Green
	Blue
)

// Colors lists the channels in commit order.
var Colors = [...]Color{Red, Green, Blue}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return "unknown"
	}
}

// Frame is the set of colour fields render reads. Only the holder of the Channel lock
// may touch it.
type Frame struct {
	Red, Green, Blue *fluid.ScalarField

	// Seq counts commits; zero means nothing has been committed yet.
	Seq uint64
}

// New allocates a frame of rows x cols colour fields with the Clone boundary.
func New(rows, cols int) *Frame {
	return &Frame{
		Red:   fluid.NewScalarField(rows, cols, fluid.Clone),
		Green: fluid.NewScalarField(rows, cols, fluid.Clone),
		Blue:  fluid.NewScalarField(rows, cols, fluid.Clone),
	}
}

// Field returns the field currently installed for c.
func (f *Frame) Field(c Color) *fluid.ScalarField {
	return *f.slot(c)
}

// Swap installs next for c and returns the field it displaced, which becomes the
// caller's spare.
func (f *Frame) Swap(c Color, next *fluid.ScalarField) *fluid.ScalarField {
	s := f.slot(c)
	prev := *s
	*s = next
	return prev
}

func (f *Frame) slot(c Color) **fluid.ScalarField {
	switch c {
	case Red:
		return &f.Red
	case Green:
		return &f.Green
	case Blue:
		return &f.Blue
	default:
		panic("frame: unknown color")
	}
}

// Rows returns the grid height.
func (f *Frame) Rows() int { return f.Red.Rows() }

// Cols returns the grid width.
func (f *Frame) Cols() int { return f.Red.Cols() }
