// Package sim runs the stable-fluids simulation and publishes colour frames.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/fluid"
	"github.com/pthm-cable/fluidpanel/frame"
	"github.com/pthm-cable/fluidpanel/telemetry"
)

// Options carries the optional collaborators of a Simulation.
type Options struct {
	Perf   *telemetry.PerfCollector // shared with the renderer for refresh rate
	Output *telemetry.OutputManager // nil disables reports.csv
	Logger *slog.Logger
}

// Simulation owns the velocity field and is the producer side of a frame.Channel.
// All methods except Drift readers belong to the goroutine running Step or Run.
type Simulation struct {
	frames *frame.Channel
	input  Input
	logger *slog.Logger

	vel   *fluid.VectorField
	arena *fluid.Arena
	pool  *fluid.Pool

	dt         float32
	sweeps     int
	forceDelta fluid.Vector2
	// The four cells that receive forcing, as (row, col).
	forceCells [4][2]int

	minTickInterval time.Duration
	lastTickStart   time.Time

	perf     *telemetry.PerfCollector
	drift    *telemetry.Drift
	reporter *telemetry.Reporter

	tick int64
}

// New creates a simulation with zero velocity. The colour fields behind frames must
// already be seeded.
func New(cfg *config.Config, frames *frame.Channel, input Input, opts Options) *Simulation {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perf := opts.Perf
	if perf == nil {
		perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	}

	rows, cols := cfg.Grid.Rows, cfg.Grid.Cols
	dt := float32(cfg.Physics.DT)
	s := &Simulation{
		frames: frames,
		input:  input,
		logger: logger,
		vel:    fluid.NewVectorField(rows, cols, fluid.MirrorNegate),
		arena:  fluid.NewArena(rows, cols, cfg.Memory.Strategy != config.StrategyPerTick),
		pool:   fluid.NewPool(cfg.Simulation.Workers),
		dt:     dt,
		sweeps: cfg.Physics.PressureIterations,
		forceDelta: fluid.Vector2{
			X: float32(cfg.Physics.Force.X) * dt,
			Y: float32(cfg.Physics.Force.Y) * dt,
		},
		perf:  perf,
		drift: &telemetry.Drift{},
	}

	ci, cj := rows/2, cols/2
	s.forceCells = [4][2]int{{ci - 1, cj - 1}, {ci - 1, cj}, {ci, cj - 1}, {ci, cj}}

	if rate := cfg.Simulation.MaxTickRate; rate > 0 {
		s.minTickInterval = time.Duration(float64(time.Second) / rate)
	}

	interval := time.Duration(cfg.Telemetry.ReportInterval * float64(time.Second))
	s.reporter = telemetry.NewReporter(interval, perf, s.drift, opts.Output, logger)

	step := math.Hypot(float64(s.forceDelta.X), float64(s.forceDelta.Y))
	if step > 1 {
		logger.Warn("forcing exceeds one cell per step, advection will lose accuracy",
			"force_step", step)
	}

	return s
}

// Velocity returns the current velocity field.
func (s *Simulation) Velocity() *fluid.VectorField { return s.vel }

// Arena returns the scratch arena.
func (s *Simulation) Arena() *fluid.Arena { return s.arena }

// Drift returns the divergence drift tracker.
func (s *Simulation) Drift() *telemetry.Drift { return s.drift }

// Reporter returns the periodic telemetry reporter.
func (s *Simulation) Reporter() *telemetry.Reporter { return s.reporter }

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int64 { return s.tick }

// Close stops the advection workers. The simulation must not be stepped afterwards.
func (s *Simulation) Close() { s.pool.Close() }

// Run steps until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("simulation started",
		"rows", s.vel.Rows(),
		"cols", s.vel.Cols(),
		"dt", s.dt,
		"sweeps", s.sweeps,
		"pooled", s.arena.Pooled(),
		"workers", s.pool.Workers(),
	)
	for {
		if err := s.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("simulation stopped", "tick", s.tick, "max_drift", s.drift.Max())
				return nil
			}
			return err
		}
	}
}

// Step runs one tick. It blocks in the frame channel while the renderer still holds
// the previous commit; the only error is ctx's.
func (s *Simulation) Step(ctx context.Context) error {
	s.perf.StartTick()

	// 1. Velocity: advect, force, project
	s.perf.StartPhase(telemetry.PhaseAdvectProject)
	s.advectVelocity()
	s.applyForce()
	s.project()

	// 2. Wait for the renderer to free the frame
	s.perf.StartPhase(telemetry.PhaseWaitLock)
	f, err := s.frames.Acquire(ctx)
	if err != nil {
		s.perf.EndTick()
		return err
	}

	// 3. Advect colours under the lock and publish
	s.perf.StartPhase(telemetry.PhaseColorCommit)
	s.advectColors(f)
	s.frames.Commit()

	// 4. Diagnostics
	s.perf.StartPhase(telemetry.PhaseDivergenceScan)
	s.measureDivergence()

	// 5. Pacing and periodic report
	s.perf.StartPhase(telemetry.PhaseIdle)
	s.tick++
	s.reporter.Tick(time.Now(), s.tick)
	err = s.pace(ctx)
	s.perf.EndTick()
	return err
}

// advectVelocity self-advects into the arena's spare velocity and retires the old field.
func (s *Simulation) advectVelocity() {
	next := s.arena.TakeVelocity()
	fluid.SelfAdvect(s.pool, next, s.vel, s.dt)
	s.arena.PutVelocity(s.vel)
	s.vel = next
}

// applyForce samples the input once and injects forceDelta at the centre cells.
func (s *Simulation) applyForce() {
	if s.input == nil || !s.input.Asserted() {
		return
	}
	for _, c := range s.forceCells {
		s.vel.At(c[0], c[1]).Accumulate(s.forceDelta)
	}
	s.vel.UpdateBoundary()
}

// project removes the divergent part of the velocity.
func (s *Simulation) project() {
	div := s.arena.Take(fluid.RoleDivergence)
	p := s.arena.Take(fluid.RolePressure)

	fluid.Divergence(div, s.vel)
	p.Fill(0)
	fluid.GaussSeidelPressure(p, div, s.sweeps)
	fluid.GradientAndSubtract(s.vel, p)
	s.vel.UpdateBoundary()

	s.arena.Put(fluid.RoleDivergence, div)
	s.arena.Put(fluid.RolePressure, p)
}

// advectColors moves each colour channel through one spare buffer. Each swap hands the
// displaced field back as the spare for the next channel.
func (s *Simulation) advectColors(f *frame.Frame) {
	spare := s.arena.Take(fluid.RoleSpareColor)
	for _, c := range frame.Colors {
		fluid.ParallelAdvect(s.pool, spare, f.Field(c), s.vel, s.dt)
		spare.UpdateBoundary()
		spare = f.Swap(c, spare)
	}
	s.arena.Put(fluid.RoleSpareColor, spare)
}

// measureDivergence scans the projected velocity and updates the drift figures.
func (s *Simulation) measureDivergence() {
	div := s.arena.Take(fluid.RoleDivergence)
	fluid.Divergence(div, s.vel)
	s.drift.Observe(fluid.MaxAbs(div), s.dt)
	s.arena.Put(fluid.RoleDivergence, div)
}

// pace sleeps out the rest of the tick when a maximum tick rate is configured.
func (s *Simulation) pace(ctx context.Context) error {
	if s.minTickInterval <= 0 {
		return nil
	}
	now := time.Now()
	if s.lastTickStart.IsZero() {
		s.lastTickStart = now
		return nil
	}
	wait := s.minTickInterval - now.Sub(s.lastTickStart)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.lastTickStart = time.Now()
	return nil
}
