package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/engine"
	"github.com/pthm-cable/fluidpanel/renderer"
	"github.com/pthm-cable/fluidpanel/sim"
	"github.com/pthm-cable/fluidpanel/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without a window, rendering into memory")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for reports.csv, config snapshot and final frame")
	snapshot := flag.String("snapshot", "", "Write the last headless frame as PNG to this path")
	seed := flag.Int64("seed", 0, "Dye noise seed (0 = config value, or time-based if that is 0)")
	stirPeriod := flag.Int("stir-period", 0, "Headless: stir for half of every N ticks (0 = never)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *seed != 0 {
		cfg.Dye.Seed = *seed
	} else if cfg.Dye.Seed == 0 {
		cfg.Dye.Seed = time.Now().UnixNano()
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	opts := engine.Options{Output: out, Logger: logger}
	if *headless && *stirPeriod > 0 {
		opts.Input = &sim.Schedule{Period: *stirPeriod, On: *stirPeriod / 2}
	}
	p, err := engine.New(cfg, opts)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	if *headless {
		err = runHeadless(ctx, p, *maxTicks, *snapshot, out)
	} else {
		err = runWindow(ctx, p, *maxTicks)
	}
	stop()

	p.Sim.Reporter().Emit(time.Now(), p.Sim.Tick())
	p.Close()
	if cerr := out.Close(); cerr != nil {
		slog.Error("failed to close output", "error", cerr)
	}
	if err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless renders into memory and optionally saves the last frame.
func runHeadless(ctx context.Context, p *engine.Pipeline, maxTicks int64, snapshot string, out *telemetry.OutputManager) error {
	cfg := p.Config
	sink := renderer.NewMemorySink(cfg.Derived.ScreenWidth, cfg.Derived.ScreenHeight)

	slog.Info("starting headless simulation",
		"seed", cfg.Dye.Seed,
		"max_ticks", maxTicks,
		"rows", cfg.Grid.Rows,
		"cols", cfg.Grid.Cols,
	)
	if err := p.Run(ctx, sink, maxTicks, nil); err != nil {
		return err
	}

	if snapshot == "" {
		snapshot = out.Path("final.png")
	}
	if snapshot == "" {
		return nil
	}
	caption := fmt.Sprintf("tick %d  max drift %.2f%%", p.Sim.Tick(), p.Sim.Drift().Max())
	if err := sink.WritePNG(snapshot, caption); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	slog.Info("snapshot saved", "path", snapshot)
	return nil
}
