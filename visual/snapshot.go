package visual

import (
	"image/color"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/entity"
)

// Snapshot is the render attribute buffer for vertex-animated units, laid out as
// parallel arrays indexed together. Skeletal units are drawn from their pooled
// meshes and are not included.
type Snapshot struct {
	Units      []components.Handle
	Positions  []r3.Vec
	Velocities []r3.Vec
	Scales     []r3.Vec
	Yaws       []float64
	TeamIDs    []int32
	Colors     []color.RGBA
	AnimIndex  []int32   // UnitState as an animation row
	AnimTime   []float64 // seconds in the current state
	LODs       []int32
	Visible    []bool

	Tick int64
}

// Len returns the number of units in the snapshot.
func (s *Snapshot) Len() int { return len(s.Positions) }

func (s *Snapshot) reset() {
	s.Units = s.Units[:0]
	s.Positions = s.Positions[:0]
	s.Velocities = s.Velocities[:0]
	s.Scales = s.Scales[:0]
	s.Yaws = s.Yaws[:0]
	s.TeamIDs = s.TeamIDs[:0]
	s.Colors = s.Colors[:0]
	s.AnimIndex = s.AnimIndex[:0]
	s.AnimTime = s.AnimTime[:0]
	s.LODs = s.LODs[:0]
	s.Visible = s.Visible[:0]
}

// Snapshotter fills a Snapshot at a fixed cadence.
type Snapshotter struct {
	store    *entity.Store
	filter   *ecs.Filter5[components.Transform, components.Velocity, components.UnitState, components.Team, components.Visual]
	interval float64
	maxUnits int
	acc      float64
	snap     Snapshot
}

// NewSnapshotter collects every interval seconds (every call when interval <= 0),
// keeping at most maxUnits units (no limit when maxUnits <= 0).
func NewSnapshotter(store *entity.Store, interval float64, maxUnits int) *Snapshotter {
	return &Snapshotter{
		store:    store,
		filter:   ecs.NewFilter5[components.Transform, components.Velocity, components.UnitState, components.Team, components.Visual](store.World()),
		interval: interval,
		maxUnits: maxUnits,
	}
}

// Advance accumulates dt and collects when the interval has elapsed.
// It reports whether a new snapshot was taken.
func (s *Snapshotter) Advance(dt float64, tick int64) bool {
	if s.interval > 0 {
		s.acc += dt
		if s.acc < s.interval {
			return false
		}
		s.acc = math.Mod(s.acc, s.interval)
	}
	s.Collect(tick)
	return true
}

// Collect rebuilds the snapshot from visible, non-skeletal units.
func (s *Snapshotter) Collect(tick int64) *Snapshot {
	snap := &s.snap
	snap.reset()
	snap.Tick = tick

	query := s.filter.Query()
	for query.Next() {
		tf, vel, st, team, vis := query.Get()
		if !vis.Visible || vis.Skeletal {
			continue
		}
		if s.maxUnits > 0 && snap.Len() >= s.maxUnits {
			continue
		}
		h, _ := s.store.HandleOf(query.Entity())

		snap.Units = append(snap.Units, h)
		snap.Positions = append(snap.Positions, tf.Position)
		snap.Velocities = append(snap.Velocities, vel.Value)
		snap.Scales = append(snap.Scales, tf.Scale)
		snap.Yaws = append(snap.Yaws, tf.Yaw)
		snap.TeamIDs = append(snap.TeamIDs, team.ID)
		snap.Colors = append(snap.Colors, team.Color)
		snap.AnimIndex = append(snap.AnimIndex, int32(st.Current))
		snap.AnimTime = append(snap.AnimTime, st.StateTime)
		snap.LODs = append(snap.LODs, int32(vis.LODLevel))
		snap.Visible = append(snap.Visible, vis.Visible)
	}
	return snap
}

// Latest returns the most recent snapshot. It is overwritten by the next collection.
func (s *Snapshotter) Latest() *Snapshot { return &s.snap }
