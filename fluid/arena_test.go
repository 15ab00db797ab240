package fluid

import "testing"

func TestPooledArenaReusesBuffers(t *testing.T) {
	a := NewArena(4, 4, true)
	start := a.Allocations()
	if start != int(numScalarRoles)+1 {
		t.Fatalf("expected %d up-front allocations, got %d", int(numScalarRoles)+1, start)
	}

	for tick := 0; tick < 10; tick++ {
		div := a.Take(RoleDivergence)
		p := a.Take(RolePressure)
		spare := a.Take(RoleSpareColor)
		vel := a.TakeVelocity()

		if p.Policy() != Clone || div.Policy() != Uninitialized || vel.Policy() != MirrorNegate {
			t.Fatal("scratch buffers carry the wrong boundary policy")
		}

		a.Put(RoleDivergence, div)
		a.Put(RolePressure, p)
		a.Put(RoleSpareColor, spare)
		a.PutVelocity(vel)
	}

	if a.Allocations() != start {
		t.Errorf("pooled arena allocated during ticks: %d -> %d", start, a.Allocations())
	}
}

func TestPooledArenaRotatesRoles(t *testing.T) {
	a := NewArena(2, 2, true)
	spare := a.Take(RoleSpareColor)
	other := NewScalarField(2, 2, Clone)

	// Whatever is put back under a role is what the next Take returns
	a.Put(RoleSpareColor, other)
	if got := a.Take(RoleSpareColor); got != other {
		t.Error("expected Take to return the field last Put under the role")
	}
	if spare == other {
		t.Error("expected distinct buffers")
	}
}

func TestPerTickArenaAllocates(t *testing.T) {
	a := NewArena(4, 4, false)
	if a.Allocations() != 0 {
		t.Fatalf("per-tick arena should not allocate up front, got %d", a.Allocations())
	}

	first := a.Take(RolePressure)
	a.Put(RolePressure, first)
	second := a.Take(RolePressure)

	if first == second {
		t.Error("per-tick arena returned a recycled buffer")
	}
	if a.Allocations() != 2 {
		t.Errorf("expected 2 allocations, got %d", a.Allocations())
	}
}
