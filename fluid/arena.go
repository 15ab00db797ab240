package fluid

// Role identifies a scratch buffer slot in an Arena.
type Role uint8

const (
	RoleDivergence Role = iota
	RolePressure
	RoleSpareColor
	numScalarRoles
)

func (r Role) String() string {
	switch r {
	case RoleDivergence:
		return "divergence"
	case RolePressure:
		return "pressure"
	case RoleSpareColor:
		return "spare_color"
	default:
		return "unknown"
	}
}

// rolePolicy is the boundary policy each scratch role needs.
var rolePolicy = [numScalarRoles]Policy{
	RoleDivergence: Uninitialized,
	RolePressure:   Clone,
	RoleSpareColor: Clone,
}

// Arena hands out scratch fields by role.
//
// A pooled arena keeps one buffer per role and one spare velocity field, so a tick
// relabels buffers instead of allocating. A per-tick arena allocates on every Take and
// drops whatever is Put back, which leaves the garbage collector to reclaim it.
type Arena struct {
	rows, cols int
	pooled     bool

	scalars  [numScalarRoles]*ScalarField
	velocity *VectorField

	allocations int
}

// NewArena creates an arena for rows x cols fields. With pooled set every slot is
// allocated up front.
func NewArena(rows, cols int, pooled bool) *Arena {
	a := &Arena{rows: rows, cols: cols, pooled: pooled}
	if pooled {
		for r := range a.scalars {
			a.scalars[r] = a.newScalar(Role(r))
		}
		a.velocity = a.newVector()
	}
	return a
}

// Pooled reports whether the arena reuses buffers.
func (a *Arena) Pooled() bool { return a.pooled }

// Allocations returns how many fields the arena has allocated so far.
func (a *Arena) Allocations() int { return a.allocations }

// Take removes the scalar field for role from the arena. Contents are whatever the
// previous holder left; callers that need zeroes must Fill.
func (a *Arena) Take(role Role) *ScalarField {
	f := a.scalars[role]
	if f == nil {
		return a.newScalar(role)
	}
	a.scalars[role] = nil
	return f
}

// Put hands f back to the arena under role.
func (a *Arena) Put(role Role, f *ScalarField) {
	if !a.pooled {
		return
	}
	a.scalars[role] = f
}

// TakeVelocity removes the spare velocity field from the arena.
func (a *Arena) TakeVelocity() *VectorField {
	f := a.velocity
	if f == nil {
		return a.newVector()
	}
	a.velocity = nil
	return f
}

// PutVelocity hands a velocity field back to the arena.
func (a *Arena) PutVelocity(f *VectorField) {
	if !a.pooled {
		return
	}
	a.velocity = f
}

func (a *Arena) newScalar(role Role) *ScalarField {
	a.allocations++
	return NewScalarField(a.rows, a.cols, rolePolicy[role])
}

func (a *Arena) newVector() *VectorField {
	a.allocations++
	return NewVectorField(a.rows, a.cols, MirrorNegate)
}
