package termview

import (
	"image/color"
	"math"
	"testing"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/camera"
	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/visual"
)

func newScreen(t *testing.T, w, h int) tcell.Screen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func snapshotOf(units ...struct {
	pos   r3.Vec
	state components.State
	yaw   float64
}) *visual.Snapshot {
	snap := &visual.Snapshot{}
	for i, u := range units {
		snap.Units = append(snap.Units, components.Handle{Index: uint32(i), Generation: 1})
		snap.Positions = append(snap.Positions, u.pos)
		snap.Velocities = append(snap.Velocities, r3.Vec{})
		snap.Scales = append(snap.Scales, r3.Vec{X: 1, Y: 1, Z: 1})
		snap.Yaws = append(snap.Yaws, u.yaw)
		snap.TeamIDs = append(snap.TeamIDs, 1)
		snap.Colors = append(snap.Colors, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		snap.AnimIndex = append(snap.AnimIndex, int32(u.state))
		snap.AnimTime = append(snap.AnimTime, 0)
		snap.LODs = append(snap.LODs, 0)
		snap.Visible = append(snap.Visible, true)
	}
	return snap
}

func TestGlyph(t *testing.T) {
	cases := []struct {
		st   components.State
		yaw  float64
		want rune
	}{
		{components.StateIdle, 0, 'o'},
		{components.StateDead, 0, '+'},
		{components.StateStunned, 0, '*'},
		{components.StateAttacking, 1, 'x'},
		{components.StateMoving, 0, '>'},
		{components.StateMoving, math.Pi / 2, 'v'},
		{components.StateMoving, math.Pi, '<'},
		{components.StateMoving, -math.Pi / 2, '^'},
	}
	for _, c := range cases {
		if got := Glyph(c.st, c.yaw); got != c.want {
			t.Errorf("Glyph(%v, %.2f) = %q, want %q", c.st, c.yaw, got, c.want)
		}
	}
}

func TestView_DrawPlacesUnitsAndStatus(t *testing.T) {
	screen := newScreen(t, 40, 11)
	// Viewport 400x100 world units at zoom 1, centred on (200, 50).
	cam := camera.New(400, 100, 1000, 1000, r3.Vec{X: 200, Y: 50})
	v := New(screen, cam)

	type unit = struct {
		pos   r3.Vec
		state components.State
		yaw   float64
	}
	snap := snapshotOf(
		unit{pos: r3.Vec{X: 5, Y: 5}, state: components.StateIdle},
		unit{pos: r3.Vec{X: 205, Y: 55}, state: components.StateMoving},
		unit{pos: r3.Vec{X: 900, Y: 900}, state: components.StateIdle}, // off screen
	)
	v.Draw(snap, "tick 1")

	if r, _, _, _ := screen.GetContent(0, 0); r != 'o' {
		t.Errorf("cell (0,0) = %q, want idle unit", r)
	}
	// x: 205/400*40 = 20, y: 55/100*10 = 5
	if r, _, _, _ := screen.GetContent(20, 5); r != '>' {
		t.Errorf("cell (20,5) = %q, want moving unit", r)
	}

	var status []rune
	for x := 0; x < 6; x++ {
		r, _, _, _ := screen.GetContent(x, 10)
		status = append(status, r)
	}
	if string(status) != "tick 1" {
		t.Errorf("status line = %q, want %q", string(status), "tick 1")
	}
}

func TestView_HandleEvent(t *testing.T) {
	screen := newScreen(t, 40, 11)
	cam := camera.New(400, 100, 1000, 1000, r3.Vec{X: 200, Y: 50})
	v := New(screen, cam)

	if a := v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)); a != ActionQuit {
		t.Errorf("q = %v, want quit", a)
	}
	if a := v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)); a != ActionPause {
		t.Errorf("space = %v, want pause", a)
	}

	v.HandleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if cam.X != 240 {
		t.Errorf("camera x after pan = %v, want 240", cam.X)
	}
	v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone))
	if cam.Zoom != 1.25 {
		t.Errorf("zoom = %v, want 1.25", cam.Zoom)
	}
	v.HandleEvent(tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone))
	if cam.X != 200 || cam.Zoom != 1 {
		t.Errorf("reset camera = (%v, zoom %v), want (200, zoom 1)", cam.X, cam.Zoom)
	}
}
