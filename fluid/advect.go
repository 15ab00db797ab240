package fluid

// Advect moves src along vel for one step of length dt and writes the result to dst.
//
// Each interior cell traces back to (i, j) - vel(i, j)*dt and bilinearly samples src
// there. dst and src must be different fields; the operator is never in-place.
// Traces longer than one cell lose accuracy but stay bounded by the clamp in Sample.
// dst's ghosts are left stale.
func Advect[T Value[T]](dst, src *Field[T], vel *VectorField, dt float32) {
	ParallelAdvect(nil, dst, src, vel, dt)
}

// ParallelAdvect is Advect with the rows split across pool. The result is identical
// to Advect since every output cell only reads src and vel.
func ParallelAdvect[T Value[T]](pool *Pool, dst, src *Field[T], vel *VectorField, dt float32) {
	if dst == src {
		panic("fluid: Advect destination aliases source")
	}
	pool.Run(dst.rows, func(i0, i1 int) {
		advectRows(dst, src, vel, dt, i0, i1)
	})
}

func advectRows[T Value[T]](dst, src *Field[T], vel *VectorField, dt float32, i0, i1 int) {
	for i := i0; i < i1; i++ {
		out := dst.Row(i)
		v := vel.Row(i)
		for j := range out {
			y := float32(i) - v[j].Y*dt
			x := float32(j) - v[j].X*dt
			out[j] = src.Sample(y, x)
		}
	}
}

// SelfAdvect advects vel through itself into dst and refreshes dst's boundary.
func SelfAdvect(pool *Pool, dst, vel *VectorField, dt float32) {
	ParallelAdvect(pool, dst, vel, vel, dt)
	dst.UpdateBoundary()
}
