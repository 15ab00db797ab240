package sim

import (
	"testing"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/frame"
)

func TestSwitch(t *testing.T) {
	var s Switch
	if s.Asserted() {
		t.Error("zero switch should be off")
	}
	if !s.Toggle() || !s.Asserted() {
		t.Error("toggle should turn the switch on")
	}
	s.Set(false)
	if s.Asserted() {
		t.Error("Set(false) should turn the switch off")
	}
}

func TestSchedule(t *testing.T) {
	s := &Schedule{Period: 4, On: 1}
	want := []bool{true, false, false, false, true, false}
	for i, w := range want {
		if got := s.Asserted(); got != w {
			t.Errorf("sample %d: got %v, want %v", i, got, w)
		}
	}

	if (&Schedule{}).Asserted() {
		t.Error("zero period should never assert")
	}
}

func TestInverted(t *testing.T) {
	var s Switch
	in := Inverted{In: &s}
	if !in.Asserted() {
		t.Error("active-low line should assert when the raw line is low")
	}
	s.Set(true)
	if in.Asserted() {
		t.Error("active-low line should release when the raw line is high")
	}
}

func TestSeedDyeNoise(t *testing.T) {
	cfg := config.Defaults().Dye
	cfg.Pattern = config.PatternNoise
	cfg.Seed = 42

	a := frame.New(12, 16)
	b := frame.New(12, 16)
	if err := SeedDye(a, cfg); err != nil {
		t.Fatal(err)
	}
	if err := SeedDye(b, cfg); err != nil {
		t.Fatal(err)
	}

	distinct := make(map[float32]bool)
	for _, c := range frame.Colors {
		for i := 0; i < 12; i++ {
			for j, v := range a.Field(c).Row(i) {
				if v < 0 || v > 1 {
					t.Fatalf("%s (%d,%d) = %v outside [0,1]", c, i, j, v)
				}
				if v != b.Field(c).Get(i, j) {
					t.Fatalf("same seed produced different dye at %s (%d,%d)", c, i, j)
				}
				distinct[float32(v)] = true
			}
		}
	}
	if len(distinct) < 4 {
		t.Errorf("expected a varied pattern, got %d distinct values", len(distinct))
	}
}

func TestSeedDyeUnknownPattern(t *testing.T) {
	cfg := config.Defaults().Dye
	cfg.Pattern = "stripes"
	if err := SeedDye(frame.New(2, 2), cfg); err == nil {
		t.Error("expected error for unknown pattern")
	}
}
