package fluid

import "math"

// Policy selects how UpdateBoundary fills the ghost ring.
type Policy uint8

const (
	// Uninitialized leaves ghosts alone; the field is scratch that is fully
	// overwritten before anything reads a ghost.
	Uninitialized Policy = iota
	// Clone copies the adjacent interior cell (zero-gradient).
	Clone
	// MirrorNegate copies the adjacent interior cell with the wall-normal
	// component negated (no-flux wall).
	MirrorNegate
)

func (p Policy) String() string {
	switch p {
	case Clone:
		return "clone"
	case MirrorNegate:
		return "mirror_negate"
	default:
		return "uninitialized"
	}
}

// Field is a fixed-size rows x cols grid surrounded by one ring of ghost cells.
type Field[T Value[T]] struct {
	rows, cols int
	stride     int
	policy     Policy
	data       []T
}

// ScalarField holds colour, pressure and divergence grids.
type ScalarField = Field[Scalar]

// VectorField holds the velocity grid.
type VectorField = Field[Vector2]

// NewField allocates a zeroed field. Dimensions never change afterwards.
func NewField[T Value[T]](rows, cols int, policy Policy) *Field[T] {
	return &Field[T]{
		rows:   rows,
		cols:   cols,
		stride: cols + 2,
		policy: policy,
		data:   make([]T, (rows+2)*(cols+2)),
	}
}

// NewScalarField allocates a scalar field.
func NewScalarField(rows, cols int, policy Policy) *ScalarField {
	return NewField[Scalar](rows, cols, policy)
}

// NewVectorField allocates a velocity field.
func NewVectorField(rows, cols int, policy Policy) *VectorField {
	return NewField[Vector2](rows, cols, policy)
}

func (f *Field[T]) Rows() int      { return f.rows }
func (f *Field[T]) Cols() int      { return f.cols }
func (f *Field[T]) Policy() Policy { return f.policy }

// At returns interior cell (i, j). i must be in [0, rows) and j in [0, cols).
func (f *Field[T]) At(i, j int) *T {
	return &f.data[(i+1)*f.stride+j+1]
}

// Get returns the value of interior cell (i, j).
func (f *Field[T]) Get(i, j int) T {
	return f.data[(i+1)*f.stride+j+1]
}

// Set writes interior cell (i, j).
func (f *Field[T]) Set(i, j int, v T) {
	f.data[(i+1)*f.stride+j+1] = v
}

// cell addresses the padded grid; i in [-1, rows] and j in [-1, cols].
func (f *Field[T]) cell(i, j int) T {
	return f.data[(i+1)*f.stride+j+1]
}

// Row returns the interior cells of row i as a slice aliasing the field.
func (f *Field[T]) Row(i int) []T {
	start := (i+1)*f.stride + 1
	return f.data[start : start+f.cols]
}

// Fill sets every cell, ghosts included.
func (f *Field[T]) Fill(v T) {
	for k := range f.data {
		f.data[k] = v
	}
}

// CopyFrom copies src into f. Both fields must have the same shape.
func (f *Field[T]) CopyFrom(src *Field[T]) {
	if src.rows != f.rows || src.cols != f.cols {
		panic("fluid: CopyFrom shape mismatch")
	}
	copy(f.data, src.data)
}

// UpdateBoundary recomputes every ghost cell from the interior per the field's policy.
// Call it after bulk interior writes and before any operator reads ghosts.
func (f *Field[T]) UpdateBoundary() {
	switch f.policy {
	case Clone:
		f.updateBoundary(false)
	case MirrorNegate:
		f.updateBoundary(true)
	}
}

func (f *Field[T]) updateBoundary(negate bool) {
	r, c, s := f.rows, f.cols, f.stride
	d := f.data
	top, bottom := 0, (r+1)*s

	edge := func(v T, a Axis) T {
		if negate {
			return v.Reflect(a)
		}
		return v
	}

	// Top and bottom walls are normal to Y
	for j := 1; j <= c; j++ {
		d[top+j] = edge(d[s+j], AxisY)
		d[bottom+j] = edge(d[r*s+j], AxisY)
	}
	// Left and right walls are normal to X
	for i := 1; i <= r; i++ {
		row := i * s
		d[row] = edge(d[row+1], AxisX)
		d[row+c+1] = edge(d[row+c], AxisX)
	}

	corner := func(v T) T {
		if negate {
			return v.Reflect(AxisX).Reflect(AxisY)
		}
		return v
	}
	d[top] = corner(d[s+1])
	d[top+c+1] = corner(d[s+c])
	d[bottom] = corner(d[r*s+1])
	d[bottom+c+1] = corner(d[r*s+c])
}

// Sample bilinearly interpolates the field at fractional cell coordinates (y, x).
// The position is clamped to half a cell past the interior so interpolation near
// walls blends with the ghost ring.
func (f *Field[T]) Sample(y, x float32) T {
	y = clamp(y, -0.5, float32(f.rows)-0.5)
	x = clamp(x, -0.5, float32(f.cols)-0.5)

	fy := float32(math.Floor(float64(y)))
	fx := float32(math.Floor(float64(x)))
	i0, j0 := int(fy), int(fx)
	ty, tx := y-fy, x-fx

	a := f.cell(i0, j0).Scale(1 - tx).Add(f.cell(i0, j0+1).Scale(tx))
	b := f.cell(i0+1, j0).Scale(1 - tx).Add(f.cell(i0+1, j0+1).Scale(tx))
	return a.Scale(1 - ty).Add(b.Scale(ty))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
