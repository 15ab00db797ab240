// Package fluid implements the grid fields and stable-fluids operators.
//
// Fields are cell-centred with unit spacing. Row index i runs along Y and column
// index j runs along X, so a Vector2 velocity moves X across columns and Y across rows.
package fluid

// Axis names the direction a boundary is normal to.
type Axis uint8

const (
	AxisX Axis = iota // left/right walls (column ghosts)
	AxisY             // top/bottom walls (row ghosts)
)

// Value is the arithmetic a field cell needs for interpolation and boundary handling.
type Value[T any] interface {
	Add(o T) T
	Scale(k float32) T
	// Reflect negates the component normal to a wall on the given axis.
	Reflect(a Axis) T
}

// Vector2 is a 2-component velocity sample.
type Vector2 struct {
	X, Y float32
}

// Add returns the component-wise sum.
func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{v.X + o.X, v.Y + o.Y}
}

// Accumulate adds o into v in place.
func (v *Vector2) Accumulate(o Vector2) {
	v.X += o.X
	v.Y += o.Y
}

func (v Vector2) Scale(k float32) Vector2 {
	return Vector2{v.X * k, v.Y * k}
}

func (v Vector2) Reflect(a Axis) Vector2 {
	if a == AxisX {
		return Vector2{-v.X, v.Y}
	}
	return Vector2{v.X, -v.Y}
}

// Scalar is a single-channel cell value (colour intensity, pressure, divergence).
type Scalar float32

func (s Scalar) Add(o Scalar) Scalar { return s + o }

func (s Scalar) Scale(k float32) Scalar { return s * Scalar(k) }

// Reflect negates the value; a scalar is its own normal component.
func (s Scalar) Reflect(Axis) Scalar { return -s }
