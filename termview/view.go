// Package termview presents the render snapshot in a terminal with tcell.
package termview

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/legion/camera"
	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/visual"
)

// Simulation is what the terminal loop drives.
type Simulation interface {
	UpdateHeadless()
	Snapshot() *visual.Snapshot
	Tick() int64
	Paused() bool
	SetPaused(bool)
}

// View draws snapshots as a character grid over the camera's visible bounds,
// with a status line on the bottom row.
type View struct {
	screen tcell.Screen
	cam    *camera.Camera
	cells  []int // units per cell, reused between frames
}

// New creates a view on an initialised screen.
func New(screen tcell.Screen, cam *camera.Camera) *View {
	return &View{screen: screen, cam: cam}
}

// Glyph returns the character for a unit in state st facing yaw.
func Glyph(st components.State, yaw float64) rune {
	switch st {
	case components.StateDead:
		return '+'
	case components.StateStunned:
		return '*'
	case components.StateAttacking:
		return 'x'
	case components.StateMoving:
		// Screen y grows downward, matching world +Y.
		switch octant := int(math.Round(yaw/(math.Pi/2))) & 3; octant {
		case 0:
			return '>'
		case 1:
			return 'v'
		case 2:
			return '<'
		default:
			return '^'
		}
	}
	return 'o'
}

// Draw renders snap and the status text. Cells holding several units show the
// most recent unit drawn and are bolded.
func (v *View) Draw(snap *visual.Snapshot, status string) {
	v.screen.Clear()
	w, h := v.screen.Size()
	rows := h - 1
	if w <= 0 || rows <= 0 {
		v.screen.Show()
		return
	}

	if cap(v.cells) < w*rows {
		v.cells = make([]int, w*rows)
	}
	v.cells = v.cells[:w*rows]
	clear(v.cells)

	minX, minY, maxX, maxY := v.cam.VisibleWorldBounds()
	spanX, spanY := maxX-minX, maxY-minY

	for i := 0; i < snap.Len(); i++ {
		p := snap.Positions[i]
		if p.X < minX || p.X >= maxX || p.Y < minY || p.Y >= maxY {
			continue
		}
		cx := int((p.X - minX) / spanX * float64(w))
		cy := int((p.Y - minY) / spanY * float64(rows))
		if cx < 0 || cx >= w || cy < 0 || cy >= rows {
			continue
		}

		c := snap.Colors[i]
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
		idx := cy*w + cx
		v.cells[idx]++
		if v.cells[idx] > 1 {
			style = style.Bold(true)
		}
		v.screen.SetContent(cx, cy, Glyph(components.State(snap.AnimIndex[i]), snap.Yaws[i]), nil, style)
	}

	statusStyle := tcell.StyleDefault.Reverse(true)
	col := 0
	for _, r := range status {
		if col >= w {
			break
		}
		v.screen.SetContent(col, rows, r, nil, statusStyle)
		col++
	}
	for ; col < w; col++ {
		v.screen.SetContent(col, rows, ' ', nil, statusStyle)
	}

	v.screen.Show()
}

// Action is what a key press asks the loop to do.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
)

// HandleEvent applies camera keys and maps the rest to an Action.
func (v *View) HandleEvent(ev tcell.Event) Action {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := v.screen.Size()
		v.cam.Resize(float64(w)*8, float64(h)*16)
		v.screen.Sync()
	case *tcell.EventKey:
		const pan = 40.0
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return ActionQuit
		case tcell.KeyLeft:
			v.cam.Pan(-pan, 0)
		case tcell.KeyRight:
			v.cam.Pan(pan, 0)
		case tcell.KeyUp:
			v.cam.Pan(0, -pan)
		case tcell.KeyDown:
			v.cam.Pan(0, pan)
		case tcell.KeyHome:
			v.cam.Reset()
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return ActionQuit
			case ' ':
				return ActionPause
			case '+', '=':
				v.cam.ZoomBy(1.25)
			case '-':
				v.cam.ZoomBy(0.8)
			}
		}
	}
	return ActionNone
}

// Run drives sim and redraws every frame until quit or maxTicks (0 = unlimited).
func Run(screen tcell.Screen, sim Simulation, cam *camera.Camera, frame time.Duration, maxTicks int64) {
	v := New(screen, cam)
	w, h := screen.Size()
	cam.Resize(float64(w)*8, float64(h)*16)

	evCh := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case evCh <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case ev := <-evCh:
			switch v.HandleEvent(ev) {
			case ActionQuit:
				return
			case ActionPause:
				sim.SetPaused(!sim.Paused())
			}
		case <-ticker.C:
			if !sim.Paused() {
				sim.UpdateHeadless()
			}
			snap := sim.Snapshot()
			status := fmt.Sprintf(" tick %d  units %d  zoom %.2f  [arrows pan, +/- zoom, space pause, q quit]", sim.Tick(), snap.Len(), cam.Zoom)
			if sim.Paused() {
				status = " PAUSED" + status
			}
			v.Draw(snap, status)
			if maxTicks > 0 && sim.Tick() >= maxTicks {
				return
			}
		}
	}
}
