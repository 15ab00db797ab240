package fluid

// Divergence writes the central-difference divergence of vel into dst:
//
//	(vx(i,j+1) - vx(i,j-1))/2 + (vy(i+1,j) - vy(i-1,j))/2
//
// vel's boundary must be current. dst's ghosts are not written.
func Divergence(dst *ScalarField, vel *VectorField) {
	s := vel.stride
	v := vel.data
	for i := 0; i < dst.rows; i++ {
		out := dst.Row(i)
		base := (i+1)*s + 1
		for j := range out {
			k := base + j
			dx := v[k+1].X - v[k-1].X
			dy := v[k+s].Y - v[k-s].Y
			out[j] = Scalar(0.5 * (dx + dy))
		}
	}
}

// GaussSeidelPressure relaxes p toward the solution of laplacian(p) = div in place.
//
// Each sweep updates interior cells in row-major order from their four neighbours,
// already-updated ones included, then refreshes p's boundary so the next sweep sees a
// zero-gradient wall. The sweep count is a latency budget; there is no convergence test.
func GaussSeidelPressure(p, div *ScalarField, sweeps int) {
	s := p.stride
	d := p.data
	p.UpdateBoundary()
	for n := 0; n < sweeps; n++ {
		for i := 0; i < p.rows; i++ {
			rhs := div.Row(i)
			base := (i+1)*s + 1
			for j := range rhs {
				k := base + j
				d[k] = (d[k-s] + d[k+s] + d[k-1] + d[k+1] - rhs[j]) * 0.25
			}
		}
		p.UpdateBoundary()
	}
}

// GradientAndSubtract removes the central-difference pressure gradient from vel,
// leaving an approximately divergence-free field. p's boundary must be current.
// vel's ghosts are left stale.
func GradientAndSubtract(vel *VectorField, p *ScalarField) {
	s := p.stride
	d := p.data
	for i := 0; i < vel.rows; i++ {
		out := vel.Row(i)
		base := (i+1)*s + 1
		for j := range out {
			k := base + j
			out[j].X -= float32(d[k+1]-d[k-1]) * 0.5
			out[j].Y -= float32(d[k+s]-d[k-s]) * 0.5
		}
	}
}

// MaxAbs returns the largest absolute interior value of f.
func MaxAbs(f *ScalarField) float32 {
	var m Scalar
	for i := 0; i < f.rows; i++ {
		for _, v := range f.Row(i) {
			if v < 0 {
				v = -v
			}
			if v > m {
				m = v
			}
		}
	}
	return float32(m)
}
