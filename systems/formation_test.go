package systems

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

func TestSlotOffset_LineIsSymmetric(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8} {
		spacing := 180.0
		var sum float64
		for slot := 0; slot < n; slot++ {
			off := SlotOffset(ShapeLine, slot, n, 1200, spacing)
			mirror := SlotOffset(ShapeLine, n-1-slot, n, 1200, spacing)
			if math.Abs(off.Y+mirror.Y) > 1e-9 {
				t.Errorf("n=%d slot %d: %v not mirrored by %v", n, slot, off, mirror)
			}
			if slot > 0 {
				prev := SlotOffset(ShapeLine, slot-1, n, 1200, spacing)
				if math.Abs(off.Y-prev.Y-spacing) > 1e-9 {
					t.Errorf("n=%d slot %d: gap %v, want %v", n, slot, off.Y-prev.Y, spacing)
				}
			}
			sum += off.Y
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("n=%d: offsets sum to %v, want 0", n, sum)
		}
	}
}

func TestSlotOffset_GridIsCenteredSquare(t *testing.T) {
	const spacing = 150.0
	for _, n := range []int{1, 4, 7, 9, 10, 16} {
		side := int(math.Ceil(math.Sqrt(float64(n))))
		half := float64(side-1) / 2 * spacing
		seen := map[r3.Vec]bool{}
		for slot := 0; slot < n; slot++ {
			off := SlotOffset(ShapeGrid, slot, n, 1000, spacing)
			if math.Abs(off.X) > half+1e-9 || math.Abs(off.Y) > half+1e-9 {
				t.Errorf("n=%d slot %d: %v outside the %dx%d square", n, slot, off, side, side)
			}
			if seen[off] {
				t.Errorf("n=%d slot %d: %v shared with another slot", n, slot, off)
			}
			seen[off] = true

			if slot%side > 0 {
				prev := SlotOffset(ShapeGrid, slot-1, n, 1000, spacing)
				if !near(r3.Sub(off, prev), r3.Vec{Y: spacing}, 1e-9) {
					t.Errorf("n=%d slot %d: column step %v", n, slot, r3.Sub(off, prev))
				}
			}
			if slot >= side {
				ahead := SlotOffset(ShapeGrid, slot-side, n, 1000, spacing)
				if !near(r3.Sub(off, ahead), r3.Vec{X: -spacing}, 1e-9) {
					t.Errorf("n=%d slot %d: row step %v", n, slot, r3.Sub(off, ahead))
				}
			}
		}

		// A full square is centred on the anchor.
		if side*side == n {
			var sum r3.Vec
			for slot := 0; slot < n; slot++ {
				sum = r3.Add(sum, SlotOffset(ShapeGrid, slot, n, 1000, spacing))
			}
			if !near(sum, r3.Vec{}, 1e-6) {
				t.Errorf("n=%d: offsets sum to %v, want 0", n, sum)
			}
		}
	}
}

func TestSlotOffset_RectangleNeighbours(t *testing.T) {
	a := SlotOffset(ShapeRectangle, 0, 12, 1000, 150)
	b := SlotOffset(ShapeRectangle, 1, 12, 1000, 150)
	if !near(r3.Sub(b, a), r3.Vec{Y: 150}, 1e-9) {
		t.Errorf("slot1 - slot0 = %v, want (0, 150, 0)", r3.Sub(b, a))
	}

	// 1000/150 gives 6 columns, so slot 6 starts the second row.
	row2 := SlotOffset(ShapeRectangle, 6, 12, 1000, 150)
	if row2.Y != a.Y || row2.X != a.X-150 {
		t.Errorf("slot 6 = %v, want one row behind %v", row2, a)
	}
}

func TestSlotOffset_WedgeRows(t *testing.T) {
	cases := []struct {
		slot int
		row  float64
	}{{0, 0}, {1, 1}, {2, 1}, {3, 2}, {5, 2}, {6, 3}, {9, 3}, {10, 4}}
	for _, c := range cases {
		off := SlotOffset(ShapeWedge, c.slot, 15, 800, 200)
		if off.X != -c.row*200 {
			t.Errorf("slot %d: X = %v, want row %v", c.slot, off.X, c.row)
		}
	}
	// Columns never run past either edge of their row.
	for slot := 0; slot < 15; slot++ {
		off := SlotOffset(ShapeWedge, slot, 15, 800, 200)
		row := -off.X / 200
		if math.Abs(off.Y) > row/2*200+1e-9 {
			t.Errorf("slot %d: Y = %v outside row %v", slot, off.Y, row)
		}
	}
	// Each row is centred.
	l := SlotOffset(ShapeWedge, 1, 15, 800, 200)
	r := SlotOffset(ShapeWedge, 2, 15, 800, 200)
	if l.Y != -r.Y {
		t.Errorf("row 1 not centred: %v %v", l, r)
	}
}

func TestSlotOffset_CircleRadius(t *testing.T) {
	n, spacing := 8, 150.0
	want := math.Sqrt(float64(n) * spacing * spacing / math.Pi)
	for slot := 0; slot < n; slot++ {
		if got := r3.Norm(SlotOffset(ShapeCircle, slot, n, 0, spacing)); math.Abs(got-want) > 1e-9 {
			t.Errorf("slot %d radius = %v, want %v", slot, got, want)
		}
	}
}

func TestFormation_AddRemoveKeepsSlotsDense(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	id := fs.CreateFormation(r3.Vec{}, 0, ShapeLine)

	var units []components.Handle
	for i := 0; i < 4; i++ {
		h := spawnAt(t, m, "infantry", r3.Vec{})
		if err := fs.AddMember(id, h); err != nil {
			t.Fatal(err)
		}
		units = append(units, h)
		if got := m.Store().Formation(h).Slot; got != i {
			t.Errorf("member %d got slot %d", i, got)
		}
	}

	if !fs.RemoveMember(id, units[1]) {
		t.Fatal("remove failed")
	}
	if m.Store().Formation(units[1]).InFormation() {
		t.Error("removed unit still in formation")
	}
	for i, h := range fs.Members(id) {
		if got := m.Store().Formation(h).Slot; got != i {
			t.Errorf("after removal %v has slot %d, want %d", h, got, i)
		}
	}
	if len(fs.Members(id)) != 3 {
		t.Errorf("members = %d, want 3", len(fs.Members(id)))
	}
}

func TestFormation_DestroyedUnitLeavesFormation(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	m.OnDestroy(fs.OnUnitDestroyed)

	id := fs.CreateFormation(r3.Vec{}, 0, ShapeRectangle)
	a := spawnAt(t, m, "infantry", r3.Vec{})
	b := spawnAt(t, m, "infantry", r3.Vec{})
	fs.AddMember(id, a)
	fs.AddMember(id, b)

	m.Destroy(a)

	members := fs.Members(id)
	if len(members) != 1 || members[0] != b {
		t.Fatalf("members = %v, want [%v]", members, b)
	}
	if m.Store().Formation(b).Slot != 0 {
		t.Error("surviving member should move to slot 0")
	}
}

func TestFormation_MemberTargetsFollowAnchor(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	origin := r3.Vec{X: 1000, Y: 1000}
	id := fs.CreateFormation(origin, math.Pi/2, ShapeLine)

	a := spawnAt(t, m, "infantry", origin)
	b := spawnAt(t, m, "infantry", origin)
	fs.AddMember(id, a)
	fs.AddMember(id, b)
	fs.Update(testDT)

	// Rotated by 90 degrees, the lateral axis points along -X.
	ta := m.Store().Target(a).Location
	tb := m.Store().Target(b).Location
	if !near(ta, r3.Vec{X: 1090, Y: 1000}, 1e-6) || !near(tb, r3.Vec{X: 910, Y: 1000}, 1e-6) {
		t.Errorf("targets = %v, %v", ta, tb)
	}
}

func TestFormation_AnchorMarchesAndHalts(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	id := fs.CreateFormation(r3.Vec{}, 0, ShapeGrid)

	if fs.State(id) != FormationIdle {
		t.Fatalf("initial state %q", fs.State(id))
	}
	if err := fs.SetTarget(id, r3.Vec{X: 0, Y: 600}); err != nil {
		t.Fatal(err)
	}
	if !fs.IsMoving(id) {
		t.Fatal("formation should be moving after SetTarget")
	}

	fs.Update(1)
	loc, _ := fs.Location(id)
	if !near(loc, r3.Vec{Y: 300}, 1e-9) {
		t.Errorf("after 1s anchor at %v, want (0, 300, 0)", loc)
	}
	if rot, _ := fs.Rotation(id); math.Abs(rot-math.Pi/2) > 1e-9 {
		t.Errorf("rotation = %v, want pi/2", rot)
	}

	fs.Update(1)
	loc, _ = fs.Location(id)
	if loc != (r3.Vec{Y: 600}) || fs.IsMoving(id) {
		t.Errorf("anchor %v moving=%v, want snapped and idle", loc, fs.IsMoving(id))
	}
}

func TestFormation_SetShapeRelayouts(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	id := fs.CreateFormation(r3.Vec{}, 0, ShapeGrid)
	for i := 0; i < 3; i++ {
		fs.AddMember(id, spawnAt(t, m, "archer", r3.Vec{}))
	}

	if err := fs.SetFormationShape(id, ShapeLine, 0, 0, 100); err != nil {
		t.Fatal(err)
	}
	g, _ := fs.Group(id)
	if g.Width != 1200 || g.Spacing != 100 {
		t.Errorf("dimensions = %v/%v", g.Width, g.Spacing)
	}
	last := fs.Members(id)[2]
	if off := m.Store().Formation(last).Offset; off != (r3.Vec{Y: 100}) {
		t.Errorf("slot 2 offset = %v, want (0, 100, 0)", off)
	}
}

func TestFormation_UnknownIDs(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	h := spawnAt(t, m, "infantry", r3.Vec{})

	if err := fs.AddMember(42, h); !errors.Is(err, ErrFormationNotFound) {
		t.Errorf("AddMember: %v", err)
	}
	if err := fs.SetTarget(42, r3.Vec{}); !errors.Is(err, ErrFormationNotFound) {
		t.Errorf("SetTarget: %v", err)
	}
	if fs.RemoveMember(42, h) {
		t.Error("RemoveMember on unknown formation should fail")
	}
}

func TestFormation_DestroyReleasesMembers(t *testing.T) {
	cfg, m := newTestWorld(t)
	fs := NewFormationSystem(m.Store(), cfg)
	id := fs.CreateFormation(r3.Vec{}, 0, ShapeCircle)
	h := spawnAt(t, m, "infantry", r3.Vec{})
	fs.AddMember(id, h)

	if err := fs.DestroyFormation(id); err != nil {
		t.Fatal(err)
	}
	if fs.FormationOf(h) != components.NoFormation {
		t.Error("unit still references destroyed formation")
	}
	if fs.Count() != 0 {
		t.Errorf("count = %d", fs.Count())
	}
}

func TestParseShape(t *testing.T) {
	if s, ok := ParseShape("Wedge"); !ok || s != ShapeWedge {
		t.Errorf("ParseShape(Wedge) = %v, %v", s, ok)
	}
	if s, ok := ParseShape("phalanx"); ok || s != ShapeGrid {
		t.Errorf("unknown shape = %v, %v", s, ok)
	}
}
