package telemetry

// Drift tracks how far the projected velocity is from divergence-free.
//
// The figure is 100 * max|div| * dt: the percentage of a cell's content that the worst
// cell gains or loses per step.
type Drift struct {
	current float64
	max     float64
}

// Observe records the maximum absolute divergence of one projected velocity field and
// returns the resulting drift.
func (d *Drift) Observe(maxDiv, dt float32) float64 {
	v := 100 * float64(maxDiv) * float64(dt)
	if v < 0 {
		v = -v
	}
	d.current = v
	if v > d.max {
		d.max = v
	}
	return v
}

// Current returns the most recent drift.
func (d *Drift) Current() float64 { return d.current }

// Max returns the largest drift seen since creation.
func (d *Drift) Max() float64 { return d.max }
