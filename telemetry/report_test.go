package telemetry

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
)

func TestDrift(t *testing.T) {
	var d Drift

	if got := d.Observe(0.02, 0.5); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected drift 1, got %v", got)
	}
	d.Observe(0.004, 0.5)

	if math.Abs(d.Current()-0.2) > 1e-6 {
		t.Errorf("expected current 0.2, got %v", d.Current())
	}
	if math.Abs(d.Max()-1) > 1e-6 {
		t.Errorf("expected max 1, got %v", d.Max())
	}
}

func newTestReporter(interval time.Duration, out *OutputManager) (*Reporter, *PerfCollector, *Drift, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	perf := NewPerfCollector(10)
	drift := &Drift{}
	return NewReporter(interval, perf, drift, out, logger), perf, drift, &buf
}

func TestReporterWallClockInterval(t *testing.T) {
	r, perf, drift, buf := newTestReporter(5*time.Second, nil)
	base := time.Unix(1000, 0)

	if r.Tick(base, 0) {
		t.Fatal("first tick should only start the clock")
	}

	// Many ticks inside the interval produce nothing
	for i := int64(1); i <= 1000; i++ {
		if r.Tick(base.Add(time.Duration(i)*time.Millisecond), i) {
			t.Fatalf("unexpected report at tick %d", i)
		}
	}

	perf.RecordFrame()
	perf.RecordFrame()
	drift.Observe(0.01, 0.5)

	if !r.Tick(base.Add(5*time.Second), 1001) {
		t.Fatal("expected a report once the interval elapsed")
	}
	rep, ok := r.Latest()
	if !ok {
		t.Fatal("expected Latest to hold the report")
	}
	if rep.Tick != 1001 || rep.ElapsedSec != 5 {
		t.Errorf("unexpected report header: %+v", rep)
	}
	if math.Abs(rep.RefreshHz-0.4) > 1e-9 {
		t.Errorf("expected 2 frames over 5s = 0.4Hz, got %v", rep.RefreshHz)
	}
	if math.Abs(rep.Drift-0.5) > 1e-6 {
		t.Errorf("expected drift 0.5, got %v", rep.Drift)
	}
	if !strings.Contains(buf.String(), `"msg":"report"`) {
		t.Errorf("expected a report log line, got %q", buf.String())
	}

	// The next interval is measured from the last report
	if r.Tick(base.Add(9*time.Second), 1002) {
		t.Error("report emitted before the next interval elapsed")
	}
}

func TestReporterLatestEmpty(t *testing.T) {
	r, _, _, _ := newTestReporter(time.Second, nil)
	if _, ok := r.Latest(); ok {
		t.Error("expected no report before the first interval")
	}
}

func TestOutputManagerWritesReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	r, _, _, _ := newTestReporter(time.Second, om)
	base := time.Unix(0, 0)
	r.Tick(base, 0)
	r.Tick(base.Add(time.Second), 10)
	r.Tick(base.Add(2*time.Second), 20)

	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "reports.csv"))
	if err != nil {
		t.Fatalf("opening reports.csv: %v", err)
	}
	defer f.Close()

	var got []Report
	if err := gocsv.UnmarshalFile(f, &got); err != nil {
		t.Fatalf("parsing reports.csv: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Tick != 10 || got[1].Tick != 20 {
		t.Errorf("unexpected ticks: %d, %d", got[0].Tick, got[1].Tick)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager without error, got %v, %v", om, err)
	}
	if err := om.WriteReport(Report{}); err != nil {
		t.Errorf("WriteReport on nil manager: %v", err)
	}
	if om.Path("x.png") != "" {
		t.Error("expected empty path when output is disabled")
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil manager: %v", err)
	}
}
