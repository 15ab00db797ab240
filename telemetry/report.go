package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Report is one periodic telemetry record.
type Report struct {
	Tick       int64   `csv:"tick"`
	ElapsedSec float64 `csv:"elapsed_sec"`

	// Frames rendered per second since the previous report
	RefreshHz   float64 `csv:"refresh_hz"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	P99TickUS   int64   `csv:"p99_tick_us"`

	AdvectProjectPct  float64 `csv:"advect_project_pct"`
	WaitLockPct       float64 `csv:"wait_lock_pct"`
	ColorCommitPct    float64 `csv:"color_commit_pct"`
	DivergenceScanPct float64 `csv:"divergence_scan_pct"`
	IdlePct           float64 `csv:"idle_pct"`

	Drift    float64 `csv:"drift"`
	MaxDrift float64 `csv:"max_drift"`
}

// LogValue implements slog.LogValuer for structured logging.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", r.Tick),
		slog.Float64("refresh_hz", r.RefreshHz),
		slog.Float64("ticks_per_sec", r.TicksPerSec),
		slog.Int64("p99_tick_us", r.P99TickUS),
		slog.Float64("advect_project_pct", r.AdvectProjectPct),
		slog.Float64("wait_lock_pct", r.WaitLockPct),
		slog.Float64("color_commit_pct", r.ColorCommitPct),
		slog.Float64("divergence_scan_pct", r.DivergenceScanPct),
		slog.Float64("idle_pct", r.IdlePct),
		slog.Float64("drift", r.Drift),
		slog.Float64("max_drift", r.MaxDrift),
	)
}

// Reporter emits a Report on a wall-clock interval, independent of how many ticks ran.
type Reporter struct {
	interval time.Duration
	perf     *PerfCollector
	drift    *Drift
	out      *OutputManager
	logger   *slog.Logger

	start      time.Time
	last       time.Time
	lastFrames int64

	latest atomic.Pointer[Report]
}

// NewReporter creates a reporter. out may be nil to skip CSV output.
func NewReporter(interval time.Duration, perf *PerfCollector, drift *Drift, out *OutputManager, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		interval: interval,
		perf:     perf,
		drift:    drift,
		out:      out,
		logger:   logger,
	}
}

// Tick is called once per simulation tick. It returns true when a report was emitted.
func (r *Reporter) Tick(now time.Time, tick int64) bool {
	if r.start.IsZero() {
		r.start = now
		r.last = now
		r.lastFrames = r.perf.Frames()
		return false
	}
	if r.interval <= 0 || now.Sub(r.last) < r.interval {
		return false
	}
	r.Emit(now, tick)
	return true
}

// Emit builds a report covering the time since the previous one, logs it and
// appends it to reports.csv.
func (r *Reporter) Emit(now time.Time, tick int64) Report {
	if r.start.IsZero() {
		r.start = now
		r.last = now
	}
	frames := r.perf.Frames()
	var refresh float64
	if dt := now.Sub(r.last).Seconds(); dt > 0 {
		refresh = float64(frames-r.lastFrames) / dt
	}
	r.last = now
	r.lastFrames = frames

	s := r.perf.Stats()
	rep := Report{
		Tick:              tick,
		ElapsedSec:        now.Sub(r.start).Seconds(),
		RefreshHz:         refresh,
		TicksPerSec:       s.TicksPerSecond,
		AvgTickUS:         s.AvgTickDuration.Microseconds(),
		P99TickUS:         s.P99TickDuration.Microseconds(),
		AdvectProjectPct:  s.PhasePct[PhaseAdvectProject],
		WaitLockPct:       s.PhasePct[PhaseWaitLock],
		ColorCommitPct:    s.PhasePct[PhaseColorCommit],
		DivergenceScanPct: s.PhasePct[PhaseDivergenceScan],
		IdlePct:           s.PhasePct[PhaseIdle],
		Drift:             r.drift.Current(),
		MaxDrift:          r.drift.Max(),
	}
	r.latest.Store(&rep)

	r.logger.Info("report", "stats", rep)
	if err := r.out.WriteReport(rep); err != nil {
		r.logger.Error("failed to write report", "error", err)
	}
	return rep
}

// Latest returns the most recent report. Safe to call from any goroutine.
func (r *Reporter) Latest() (Report, bool) {
	p := r.latest.Load()
	if p == nil {
		return Report{}, false
	}
	return *p, true
}
