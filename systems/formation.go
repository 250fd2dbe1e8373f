package systems

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/looplab/fsm"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
)

// ErrFormationNotFound is returned for an unknown formation id.
var ErrFormationNotFound = errors.New("systems: formation not found")

// Shape is a formation layout.
type Shape uint8

const (
	ShapeGrid Shape = iota
	ShapeRectangle
	ShapeWedge
	ShapeLine
	ShapeCircle
)

var shapeNames = [...]string{"grid", "rectangle", "wedge", "line", "circle"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "grid"
}

// ParseShape maps a shape name to a Shape. Unknown names select the grid.
func ParseShape(name string) (Shape, bool) {
	i := slices.Index(shapeNames[:], strings.ToLower(name))
	if i < 0 {
		return ShapeGrid, false
	}
	return Shape(i), true
}

// Formation states.
const (
	FormationIdle   = "idle"
	FormationMoving = "moving"
)

// Group is one formation: an anchor, a shape and its members in slot order.
type Group struct {
	ID       components.FormationID
	Location r3.Vec
	Rotation float64 // yaw of the anchor
	Target   r3.Vec
	Shape    Shape
	Width    float64
	Depth    float64
	Spacing  float64

	members []components.Handle
	state   *fsm.FSM
}

func newGroup(id components.FormationID, location r3.Vec, rotation float64) *Group {
	g := &Group{ID: id, Location: location, Rotation: rotation, Target: location}
	g.state = fsm.NewFSM(
		FormationIdle,
		fsm.Events{
			{Name: "march", Src: []string{FormationIdle}, Dst: FormationMoving},
			{Name: "halt", Src: []string{FormationMoving}, Dst: FormationIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				slog.Debug("formation_state", "formation", id, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return g
}

// IsMoving reports whether the anchor is travelling to its target.
func (g *Group) IsMoving() bool { return g.state.Is(FormationMoving) }

func (g *Group) fire(event string) {
	if g.state.Can(event) {
		_ = g.state.Event(context.Background(), event)
	}
}

// slotWorld returns the world target of a slot under the current anchor.
func (g *Group) slotWorld(offset r3.Vec) r3.Vec {
	return r3.Add(g.Location, rotateYaw(offset, g.Rotation))
}

// SlotOffset returns the local offset of slot in a formation of count members.
// Forward is +X and lateral is +Y; rows extend backward along -X.
func SlotOffset(shape Shape, slot, count int, width, spacing float64) r3.Vec {
	if count <= 0 || slot < 0 {
		return r3.Vec{}
	}
	switch shape {
	case ShapeRectangle:
		cols := 1
		if spacing > 0 {
			cols = max(1, int(math.Floor(width/spacing)))
		}
		rows := (count + cols - 1) / cols
		row, col := slot/cols, slot%cols
		return r3.Vec{
			X: (float64(rows-1)/2 - float64(row)) * spacing,
			Y: (float64(col) - float64(cols-1)/2) * spacing,
		}

	case ShapeWedge:
		row := int(math.Floor(math.Sqrt(2 * float64(slot))))
		for row > 0 && row*(row+1)/2 > slot {
			row--
		}
		for (row+1)*(row+2)/2 <= slot {
			row++
		}
		col := slot - row*(row+1)/2
		return r3.Vec{
			X: -float64(row) * spacing,
			Y: (float64(col) - float64(row)/2) * spacing,
		}

	case ShapeLine:
		return r3.Vec{Y: (float64(slot) - float64(count-1)/2) * spacing}

	case ShapeCircle:
		angle := float64(slot) * 2 * math.Pi / float64(count)
		radius := math.Sqrt(float64(count) * spacing * spacing / math.Pi)
		return r3.Vec{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}

	default:
		side := int(math.Ceil(math.Sqrt(float64(count))))
		row, col := slot/side, slot%side
		half := float64(side-1) / 2
		return r3.Vec{
			X: (half - float64(row)) * spacing,
			Y: (float64(col) - half) * spacing,
		}
	}
}

var fallbackShapes = map[Shape]config.ShapeConfig{
	ShapeRectangle: {Width: 1000, Depth: 500, Spacing: 150},
	ShapeWedge:     {Width: 800, Depth: 800, Spacing: 200},
	ShapeLine:      {Width: 1200, Depth: 300, Spacing: 180},
	ShapeCircle:    {Width: 1000, Depth: 1000, Spacing: 150},
	ShapeGrid:      {Width: 1000, Depth: 1000, Spacing: 150},
}

// FormationSystem owns formation groups, moves their anchors and publishes each
// member's slot position as its target location.
type FormationSystem struct {
	store  *entity.Store
	groups map[components.FormationID]*Group
	order  []components.FormationID
	nextID components.FormationID

	anchorSpeed  float64
	arrivalTolSq float64
	shapes       map[Shape]config.ShapeConfig
}

// NewFormationSystem creates an empty formation system.
func NewFormationSystem(store *entity.Store, cfg *config.Config) *FormationSystem {
	shapes := make(map[Shape]config.ShapeConfig, len(fallbackShapes))
	for k, v := range fallbackShapes {
		shapes[k] = v
	}
	for name, sc := range cfg.Formation.Shapes {
		if kind, ok := ParseShape(name); ok {
			shapes[kind] = sc
		} else {
			slog.Warn("unknown_formation_shape", "shape", name)
		}
	}
	return &FormationSystem{
		store:        store,
		groups:       make(map[components.FormationID]*Group),
		anchorSpeed:  cfg.Formation.AnchorSpeed,
		arrivalTolSq: cfg.Derived.ArrivalToleranceSq,
		shapes:       shapes,
	}
}

// CreateFormation creates an empty formation with the shape's default dimensions.
func (s *FormationSystem) CreateFormation(location r3.Vec, rotation float64, kind Shape) components.FormationID {
	s.nextID++
	id := s.nextID

	g := newGroup(id, location, rotation)
	def := s.shapes[kind]
	g.Shape, g.Width, g.Depth, g.Spacing = kind, def.Width, def.Depth, def.Spacing

	s.groups[id] = g
	s.order = append(s.order, id)
	return id
}

// DestroyFormation releases every member and forgets the formation.
func (s *FormationSystem) DestroyFormation(id components.FormationID) error {
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("destroy formation %d: %w", id, ErrFormationNotFound)
	}
	for _, h := range g.members {
		if f := s.store.Formation(h); f != nil {
			f.Reset()
		}
	}
	delete(s.groups, id)
	s.order = slices.DeleteFunc(s.order, func(v components.FormationID) bool { return v == id })
	return nil
}

// Group returns a formation by id.
func (s *FormationSystem) Group(id components.FormationID) (*Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Count returns the number of formations.
func (s *FormationSystem) Count() int { return len(s.groups) }

// IDs returns formation ids in creation order.
func (s *FormationSystem) IDs() []components.FormationID { return slices.Clone(s.order) }

// AddMember appends unit to the formation at the next free slot. A unit already
// in another formation leaves it first.
func (s *FormationSystem) AddMember(id components.FormationID, unit components.Handle) error {
	g, ok := s.groups[id]
	if !ok {
		slog.Warn("formation_not_found", "op", "add_member", "formation", id)
		return fmt.Errorf("add member to %d: %w", id, ErrFormationNotFound)
	}
	form := s.store.Formation(unit)
	if form == nil {
		slog.Warn("stale_handle", "op", "add_member", "unit", unit.String())
		return entity.ErrStaleHandle
	}
	if form.ID == id {
		return nil
	}
	if form.InFormation() {
		s.RemoveMember(form.ID, unit)
	}

	g.members = append(g.members, unit)
	s.relayout(g)
	return nil
}

// RemoveMember removes unit and compacts the remaining slots.
func (s *FormationSystem) RemoveMember(id components.FormationID, unit components.Handle) bool {
	g, ok := s.groups[id]
	if !ok {
		slog.Warn("formation_not_found", "op", "remove_member", "formation", id)
		return false
	}
	i := slices.Index(g.members, unit)
	if i < 0 {
		return false
	}
	g.members = slices.Delete(g.members, i, i+1)
	if f := s.store.Formation(unit); f != nil && f.ID == id {
		f.Reset()
	}
	s.relayout(g)
	return true
}

// OnUnitDestroyed is a destroy hook that drops unit from its formation.
func (s *FormationSystem) OnUnitDestroyed(unit components.Handle) {
	if id := s.FormationOf(unit); id != components.NoFormation {
		s.RemoveMember(id, unit)
	}
}

// FormationOf returns the formation unit belongs to, or NoFormation.
func (s *FormationSystem) FormationOf(unit components.Handle) components.FormationID {
	if f := s.store.Formation(unit); f != nil {
		return f.ID
	}
	return components.NoFormation
}

// SetTarget sends the formation's anchor toward location.
func (s *FormationSystem) SetTarget(id components.FormationID, location r3.Vec) error {
	g, ok := s.groups[id]
	if !ok {
		slog.Warn("formation_not_found", "op", "set_target", "formation", id)
		return fmt.Errorf("set target of %d: %w", id, ErrFormationNotFound)
	}
	g.Target = location
	g.fire("march")
	return nil
}

// SetFormationShape changes the layout and recomputes every member slot.
// Non-positive dimensions keep the shape's defaults.
func (s *FormationSystem) SetFormationShape(id components.FormationID, kind Shape, width, depth, spacing float64) error {
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("set shape of %d: %w", id, ErrFormationNotFound)
	}
	def := s.shapes[kind]
	g.Shape = kind
	g.Width = cmpOr(width, def.Width)
	g.Depth = cmpOr(depth, def.Depth)
	g.Spacing = cmpOr(spacing, def.Spacing)
	s.relayout(g)
	return nil
}

func cmpOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// Location returns the anchor position.
func (s *FormationSystem) Location(id components.FormationID) (r3.Vec, bool) {
	if g, ok := s.groups[id]; ok {
		return g.Location, true
	}
	return r3.Vec{}, false
}

// Rotation returns the anchor yaw.
func (s *FormationSystem) Rotation(id components.FormationID) (float64, bool) {
	if g, ok := s.groups[id]; ok {
		return g.Rotation, true
	}
	return 0, false
}

// Target returns where the anchor is heading.
func (s *FormationSystem) Target(id components.FormationID) (r3.Vec, bool) {
	if g, ok := s.groups[id]; ok {
		return g.Target, true
	}
	return r3.Vec{}, false
}

// Members returns the members in slot order.
func (s *FormationSystem) Members(id components.FormationID) []components.Handle {
	if g, ok := s.groups[id]; ok {
		return slices.Clone(g.members)
	}
	return nil
}

// IsMoving reports whether the formation's anchor is in transit.
func (s *FormationSystem) IsMoving(id components.FormationID) bool {
	g, ok := s.groups[id]
	return ok && g.IsMoving()
}

// State returns the formation's state name.
func (s *FormationSystem) State(id components.FormationID) string {
	if g, ok := s.groups[id]; ok {
		return g.state.Current()
	}
	return ""
}

// Update moves anchors and publishes slot targets.
func (s *FormationSystem) Update(dt float64) {
	for _, id := range s.order {
		g := s.groups[id]
		if g.IsMoving() {
			s.moveAnchor(g, dt)
		}
		s.relayout(g)
	}
}

func (s *FormationSystem) moveAnchor(g *Group, dt float64) {
	toTarget := r3.Sub(g.Target, g.Location)
	d2 := r3.Norm2(toTarget)

	if d2 <= s.arrivalTolSq {
		g.Location = g.Target
		g.fire("halt")
		slog.Debug("formation_arrived", "formation", g.ID)
		return
	}

	step := s.anchorSpeed * dt
	g.Rotation = yawOf(toTarget)
	if step*step >= d2 {
		g.Location = g.Target
		g.fire("halt")
		slog.Debug("formation_arrived", "formation", g.ID)
		return
	}
	g.Location = r3.Add(g.Location, r3.Scale(step/math.Sqrt(d2), toTarget))
}

// relayout renumbers slots densely, dropping members whose handle went stale.
func (s *FormationSystem) relayout(g *Group) {
	g.members = slices.DeleteFunc(g.members, func(h components.Handle) bool {
		return !s.store.IsValid(h)
	})
	for slot, h := range g.members {
		s.assign(g, h, slot)
	}
}

func (s *FormationSystem) assign(g *Group, unit components.Handle, slot int) {
	offset := SlotOffset(g.Shape, slot, len(g.members), g.Width, g.Spacing)
	if f := s.store.Formation(unit); f != nil {
		f.ID = g.ID
		f.Slot = slot
		f.Offset = offset
	}
	if tgt := s.store.Target(unit); tgt != nil {
		tgt.Location = g.slotWorld(offset)
	}
}
