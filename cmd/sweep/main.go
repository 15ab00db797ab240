// Command sweep measures the drift/latency trade-off of the pressure solver's sweep
// count by running stirred headless simulations and writing one CSV row per count.
//
// Usage: go run ./cmd/sweep -sweeps 0,5,10,20,40 -output results.csv
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/fluidpanel/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	sweepList := flag.String("sweeps", "0,5,10,20,40", "Comma-separated sweep counts to compare")
	seeds := flag.Int("seeds", 3, "Runs per sweep count, each with a different dye seed")
	ticks := flag.Int64("ticks", 600, "Ticks per run")
	stirPeriod := flag.Int("stir-period", 60, "Stir for half of every N ticks")
	outputPath := flag.String("output", "sweep.csv", "Output CSV path")
	parallel := flag.Int("parallel", runtime.NumCPU(), "Concurrent runs")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	sweeps, err := parseSweeps(*sweepList)
	if err != nil {
		slog.Error("invalid -sweeps", "error", err)
		os.Exit(1)
	}
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	base := config.Cfg()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var mu sync.Mutex
	var runs []RunResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for _, k := range sweeps {
		k := k
		for s := 0; s < *seeds; s++ {
			seed := int64(s*1000 + 42)
			g.Go(func() error {
				r, err := runOne(gctx, base, k, seed, *ticks, *stirPeriod)
				if err != nil {
					return err
				}
				slog.Info("run complete",
					"sweeps", k,
					"seed", seed,
					"max_drift", r.MaxDrift,
					"avg_tick_us", r.AvgTickUS,
				)
				mu.Lock()
				runs = append(runs, r)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	// Keep rows in the order the counts were requested
	ordered := make([]RunResult, 0, len(runs))
	for _, k := range sweeps {
		for _, r := range runs {
			if r.Sweeps == k {
				ordered = append(ordered, r)
			}
		}
	}
	results := aggregate(ordered)

	f, err := os.Create(*outputPath)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	if err := gocsv.MarshalFile(&results, f); err != nil {
		f.Close()
		slog.Error("failed to write results", "error", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}

	for _, r := range results {
		slog.Info("sweep result", "sweeps", r.Sweeps, "max_drift_mean", r.MaxDriftMean, "p99_tick_us", r.P99TickUS)
	}
	slog.Info("sweep finished", "output", *outputPath, "elapsed", time.Since(start).Round(time.Second).String())
}
