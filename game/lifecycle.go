package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/systems"
)

// looseSpacing separates units of a group spawned without a formation.
const looseSpacing = 150.0

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// spawnScenario creates the configured groups. Formed groups face their march
// target; loose groups request a path each.
func (g *Game) spawnScenario() error {
	for i, grp := range g.cfg.Scenario.Groups {
		var err error
		if grp.Shape == "" {
			err = g.spawnLoose(grp)
		} else {
			err = g.spawnFormed(grp)
		}
		if errors.Is(err, entity.ErrCapacity) {
			slog.Warn("scenario_truncated", "group", i, "template", grp.Template)
			return nil
		}
		if err != nil {
			return fmt.Errorf("scenario group %d: %w", i, err)
		}
	}
	return nil
}

func (g *Game) spawnFormed(grp config.GroupConfig) error {
	kind, ok := systems.ParseShape(grp.Shape)
	if !ok {
		return fmt.Errorf("unknown shape %q", grp.Shape)
	}
	origin, target := vec(grp.Origin), vec(grp.March)
	marching := target != (r3.Vec{})

	var yaw float64
	if marching {
		d := r3.Sub(target, origin)
		yaw = math.Atan2(d.Y, d.X)
	}
	id := g.formations.CreateFormation(origin, yaw, kind)

	for i := 0; i < grp.Count; i++ {
		h, err := g.manager.SpawnByName(grp.Template, components.Transform{Position: origin, Yaw: yaw})
		if err != nil {
			return err
		}
		if err := g.formations.AddMember(id, h); err != nil {
			return err
		}
	}
	// Start members on their slots rather than piled on the anchor.
	for _, h := range g.formations.Members(id) {
		if tf, tgt := g.store.Transform(h), g.store.Target(h); tf != nil && tgt != nil {
			tf.Position = tgt.Location
		}
	}

	if marching {
		if err := g.formations.SetTarget(id, target); err != nil {
			return err
		}
		g.marches = append(g.marches, march{formation: id, origin: origin, target: target, forward: true})
	}
	return nil
}

func (g *Game) spawnLoose(grp config.GroupConfig) error {
	origin, target := vec(grp.Origin), vec(grp.March)
	cols := max(1, int(math.Ceil(math.Sqrt(float64(grp.Count)))))

	for i := 0; i < grp.Count; i++ {
		offset := r3.Vec{
			X: float64(i%cols)*looseSpacing - float64(cols-1)*looseSpacing/2,
			Y: float64(i/cols)*looseSpacing - float64(cols-1)*looseSpacing/2,
		}
		pos := r3.Add(origin, offset)
		h, err := g.manager.SpawnByName(grp.Template, components.Transform{Position: pos})
		if err != nil {
			return err
		}
		g.loose = append(g.loose, h)
		if target != (r3.Vec{}) {
			g.navigation.RequestPath(h, r3.Add(target, offset))
		}
	}
	return nil
}

// cleanupCorpses destroys units that have been dead for corpse_time seconds.
func (g *Game) cleanupCorpses() int {
	if g.corpseTime <= 0 {
		return 0
	}

	// First pass: collect (no structural changes while the query is open)
	g.corpses = g.corpses[:0]
	query := g.corpseFilter.Query()
	for query.Next() {
		st := query.Get()
		if st.IsDead() && st.StateTime >= g.corpseTime {
			h, _ := g.store.HandleOf(query.Entity())
			g.corpses = append(g.corpses, h)
		}
	}

	// Second pass: destroy through the manager so hooks and events fire
	removed := 0
	for _, h := range g.corpses {
		if g.manager.Destroy(h) {
			removed++
		}
	}
	return removed
}

// toggleMarch sends every marching formation back the way it came.
func (g *Game) toggleMarch() {
	for i := range g.marches {
		m := &g.marches[i]
		m.forward = !m.forward
		dest := m.origin
		if m.forward {
			dest = m.target
		}
		if err := g.formations.SetTarget(m.formation, dest); err != nil {
			slog.Warn("march_failed", "formation", m.formation, "error", err)
		}
	}
}
