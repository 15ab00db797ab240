// Package engine wires the simulation, frame channel and renderer into a runnable
// pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/frame"
	"github.com/pthm-cable/fluidpanel/renderer"
	"github.com/pthm-cable/fluidpanel/sim"
	"github.com/pthm-cable/fluidpanel/telemetry"
)

// Options holds the optional parts of a pipeline.
type Options struct {
	// Input overrides the default Switch as the forcing trigger.
	Input  sim.Input
	Output *telemetry.OutputManager
	Logger *slog.Logger
}

// Pipeline is one simulation feeding one renderer.
type Pipeline struct {
	Config *config.Config
	Frames *frame.Channel
	Sim    *sim.Simulation
	Perf   *telemetry.PerfCollector
	// Stir is the default trigger, driven by windows. Unused when Options.Input is set.
	Stir *sim.Switch

	logger *slog.Logger
}

// New seeds the colour frame and builds the simulation.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := frame.New(cfg.Grid.Rows, cfg.Grid.Cols)
	if err := sim.SeedDye(f, cfg.Dye); err != nil {
		return nil, fmt.Errorf("seeding dye: %w", err)
	}

	p := &Pipeline{
		Config: cfg,
		Frames: frame.NewChannel(f),
		Perf:   telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		Stir:   &sim.Switch{},
		logger: logger,
	}

	var input sim.Input = p.Stir
	if opts.Input != nil {
		input = opts.Input
	}
	p.Sim = sim.New(cfg, p.Frames, input, sim.Options{
		Perf:   p.Perf,
		Output: opts.Output,
		Logger: logger,
	})
	return p, nil
}

// Run drives the simulation and a renderer on sink until ctx is cancelled, maxTicks
// steps have run (0 = unlimited) or the sink fails.
//
// foreground, if non-nil, runs on the calling goroutine while the pipeline works;
// when it returns the pipeline stops. Windows that must own the main thread use it.
func (p *Pipeline) Run(ctx context.Context, sink renderer.Sink, maxTicks int64, foreground func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r, err := renderer.New(p.Frames, sink, p.Config.Grid.Rows, p.Config.Grid.Cols, renderer.Options{
		Scale:      p.Config.Display.Scale,
		TileWidth:  p.Config.Display.TileWidth,
		TileHeight: p.Config.Display.TileHeight,
		Perf:       p.Perf,
		Logger:     p.logger,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return p.step(gctx, maxTicks)
	})
	g.Go(func() error {
		return r.Run(gctx)
	})

	var fgErr error
	if foreground != nil {
		fgErr = foreground(gctx)
		cancel()
	}
	return errors.Join(g.Wait(), fgErr)
}

func (p *Pipeline) step(ctx context.Context, maxTicks int64) error {
	if maxTicks <= 0 {
		return p.Sim.Run(ctx)
	}
	for p.Sim.Tick() < maxTicks {
		if err := p.Sim.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
	p.logger.Info("max ticks reached", "tick", p.Sim.Tick())
	return nil
}

// Close releases the simulation's worker goroutines.
func (p *Pipeline) Close() { p.Sim.Close() }

// Status is a one-line summary of the latest report for window captions.
func (p *Pipeline) Status() string {
	rep, ok := p.Sim.Reporter().Latest()
	if !ok {
		return "warming up"
	}
	return fmt.Sprintf("%.0f fps  %.0f tps  drift %.2f%% (max %.2f%%)",
		rep.RefreshHz, rep.TicksPerSec, rep.Drift, rep.MaxDrift)
}
