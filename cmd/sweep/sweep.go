package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/engine"
	"github.com/pthm-cable/fluidpanel/renderer"
	"github.com/pthm-cable/fluidpanel/sim"
)

// RunResult is one headless run at a fixed sweep count and seed.
type RunResult struct {
	Sweeps     int
	Seed       int64
	MaxDrift   float64
	FinalDrift float64
	AvgTickUS  float64
	P99TickUS  float64
}

// SweepResult aggregates every seed run at one sweep count.
type SweepResult struct {
	Sweeps        int     `csv:"sweeps"`
	Runs          int     `csv:"runs"`
	MaxDriftMean  float64 `csv:"max_drift_mean"`
	MaxDriftStd   float64 `csv:"max_drift_std"`
	MaxDriftWorst float64 `csv:"max_drift_worst"`
	FinalDrift    float64 `csv:"final_drift_mean"`
	AvgTickUS     float64 `csv:"avg_tick_us"`
	P99TickUS     float64 `csv:"p99_tick_us"`
}

// parseSweeps reads a comma-separated list of non-negative sweep counts.
func parseSweeps(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("sweep count %q: %w", part, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("sweep count %d is negative", n)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sweep counts in %q", s)
	}
	return out, nil
}

// runOne runs a stirred headless pipeline for ticks steps.
func runOne(ctx context.Context, base *config.Config, sweeps int, seed int64, ticks int64, stirPeriod int) (RunResult, error) {
	cfg := *base
	cfg.Physics.PressureIterations = sweeps
	cfg.Dye.Seed = seed
	cfg.Telemetry.ReportInterval = 0
	// Runs already execute in parallel
	cfg.Simulation.Workers = 1

	p, err := engine.New(&cfg, engine.Options{
		Input:  &sim.Schedule{Period: stirPeriod, On: stirPeriod / 2},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return RunResult{}, err
	}
	defer p.Close()
	sink := renderer.NewMemorySink(cfg.Derived.ScreenWidth, cfg.Derived.ScreenHeight)
	if err := p.Run(ctx, sink, ticks, nil); err != nil {
		return RunResult{}, fmt.Errorf("sweeps=%d seed=%d: %w", sweeps, seed, err)
	}

	perf := p.Perf.Stats()
	return RunResult{
		Sweeps:     sweeps,
		Seed:       seed,
		MaxDrift:   p.Sim.Drift().Max(),
		FinalDrift: p.Sim.Drift().Current(),
		AvgTickUS:  float64(perf.AvgTickDuration.Microseconds()),
		P99TickUS:  float64(perf.P99TickDuration.Microseconds()),
	}, nil
}

// aggregate groups runs by sweep count, in the order the counts first appear.
func aggregate(runs []RunResult) []SweepResult {
	var order []int
	bySweeps := make(map[int][]RunResult)
	for _, r := range runs {
		if _, ok := bySweeps[r.Sweeps]; !ok {
			order = append(order, r.Sweeps)
		}
		bySweeps[r.Sweeps] = append(bySweeps[r.Sweeps], r)
	}

	out := make([]SweepResult, 0, len(order))
	for _, k := range order {
		group := bySweeps[k]
		maxDrift := make([]float64, len(group))
		final := make([]float64, len(group))
		avg := make([]float64, len(group))
		p99 := make([]float64, len(group))
		for i, r := range group {
			maxDrift[i] = r.MaxDrift
			final[i] = r.FinalDrift
			avg[i] = r.AvgTickUS
			p99[i] = r.P99TickUS
		}

		res := SweepResult{
			Sweeps:        k,
			Runs:          len(group),
			MaxDriftMean:  stat.Mean(maxDrift, nil),
			MaxDriftWorst: floats.Max(maxDrift),
			FinalDrift:    stat.Mean(final, nil),
			AvgTickUS:     stat.Mean(avg, nil),
			P99TickUS:     floats.Max(p99),
		}
		if len(group) > 1 {
			res.MaxDriftStd = stat.StdDev(maxDrift, nil)
		}
		out = append(out, res)
	}
	return out
}
