package components

import (
	"image/color"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a unit's world placement. Yaw is the rotation about +Z in radians,
// with yaw 0 facing +X.
type Transform struct {
	Position r3.Vec
	Yaw      float64
	Scale    r3.Vec
}

// Velocity is a unit's linear velocity in units per second.
type Velocity struct {
	Value r3.Vec
}

// Force is the steering acceleration applied this frame.
type Force struct {
	Value r3.Vec
}

// LookAt is the unit's facing direction (unit length or zero).
type LookAt struct {
	Direction r3.Vec
}

// UnitState holds the behavioural state and the time spent in it.
type UnitState struct {
	Current   State
	StateTime float64 // seconds
	UnitType  Tag
	Level     int
}

// Enter switches to s and resets the state timer. Dead is terminal.
func (u *UnitState) Enter(s State) bool {
	if u.Current == StateDead || u.Current == s {
		return false
	}
	u.Current = s
	u.StateTime = 0
	return true
}

// IsDead reports whether the unit is dead.
func (u *UnitState) IsDead() bool { return u.Current == StateDead }

// IsDisabled reports whether the unit skips movement and combat this frame.
func (u *UnitState) IsDisabled() bool {
	return u.Current == StateDead || u.Current == StateStunned
}

// Target holds what a unit is heading for or fighting.
type Target struct {
	Entity   Handle
	Location r3.Vec
	Priority float64
}

// HasTarget reports whether a target entity or a non-zero location is set.
// The entity handle is not resolved here; callers validate it against the registry.
func (t *Target) HasTarget() bool {
	return !t.Entity.IsNil() || t.Location != (r3.Vec{})
}

// Clear drops both the target entity and the location.
func (t *Target) Clear() {
	t.Entity = NilHandle
	t.Location = r3.Vec{}
}

// Team identifies the side a unit fights for.
type Team struct {
	ID      int32
	Color   color.RGBA
	Faction Tag
}

// Ability holds granted abilities, active effects and named attributes.
// A nil Attributes map selects the level-only combat fallback.
type Ability struct {
	Granted       []Tag
	ActiveEffects []Tag
	Attributes    map[string]float64
}

// Attribute returns the named attribute.
func (a *Ability) Attribute(name string) (float64, bool) {
	if a.Attributes == nil {
		return 0, false
	}
	v, ok := a.Attributes[name]
	return v, ok
}

// HasAttributes reports whether the unit tracks attributes at all.
func (a *Ability) HasAttributes() bool { return len(a.Attributes) > 0 }

// NoMesh marks a Visual with no pooled skeletal mesh.
const NoMesh = -1

// Visual holds render-facing state. Skeletal and vertex representations are exclusive:
// Skeletal true means the pooled skeletal mesh at MeshIndex is active.
type Visual struct {
	CurrentAnimation Tag
	TargetAnimation  Tag
	BlendAlpha       float64
	LODLevel         int
	Visible          bool
	Skeletal         bool
	MeshIndex        int
}

// LOD holds the unit's distance-based detail level.
type LOD struct {
	Level      int
	DistanceSq float64
}

// FormationID identifies a formation group. NoFormation means not in one.
type FormationID uint32

const NoFormation FormationID = 0

// Formation links a unit to its formation slot.
type Formation struct {
	ID     FormationID
	Slot   int
	Offset r3.Vec // local offset from the anchor, before rotation
}

// InFormation reports whether the unit belongs to a formation.
func (f *Formation) InFormation() bool { return f.ID != NoFormation }

// Reset detaches the unit from its formation.
func (f *Formation) Reset() {
	*f = Formation{Slot: -1}
}

// Navigation holds path request state and the current path.
type Navigation struct {
	Destination   r3.Vec
	Path          []r3.Vec
	PathIndex     int
	PathRequested bool
	PathValid     bool
	// RequestID identifies the outstanding request; results carrying another id are stale.
	RequestID uuid.UUID
}

// CurrentWaypoint returns the waypoint the unit is heading for.
func (n *Navigation) CurrentWaypoint() (r3.Vec, bool) {
	if !n.PathValid || n.PathIndex < 0 || n.PathIndex >= len(n.Path) {
		return r3.Vec{}, false
	}
	return n.Path[n.PathIndex], true
}

// HasReachedDestination reports whether pos is within tolerance of the destination.
func (n *Navigation) HasReachedDestination(pos r3.Vec, tolerance float64) bool {
	return r3.Norm2(r3.Sub(n.Destination, pos)) <= tolerance*tolerance
}
