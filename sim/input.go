package sim

import "sync/atomic"

// Input is the forcing trigger, sampled once per tick.
type Input interface {
	Asserted() bool
}

// Switch is an Input driven by another goroutine, typically a window's key or mouse
// handler.
type Switch struct {
	on atomic.Bool
}

// Set drives the line.
func (s *Switch) Set(on bool) { s.on.Store(on) }

// Toggle flips the line and returns the new state.
func (s *Switch) Toggle() bool {
	for {
		old := s.on.Load()
		if s.on.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Switch) Asserted() bool { return s.on.Load() }

// Schedule asserts for the first On samples of every Period samples. It stirs headless
// runs without an operator. A zero Period never asserts.
type Schedule struct {
	Period int
	On     int

	samples atomic.Int64
}

func (s *Schedule) Asserted() bool {
	n := s.samples.Add(1) - 1
	if s.Period <= 0 {
		return false
	}
	return int(n%int64(s.Period)) < s.On
}

// Inverted adapts an active-low line.
type Inverted struct {
	In Input
}

func (i Inverted) Asserted() bool { return !i.In.Asserted() }
