// Package telemetry tracks battle statistics, tick performance and milestones,
// and writes them as CSV.
package telemetry

import (
	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/events"
)

// Collector accumulates events within time windows and produces WindowStats.
// Counters are updated from bus listeners, which run on the tick goroutine.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for current window
	hits         int
	kills        int
	stuns        int
	damage       float64
	pathRequests int
	pathsReady   int
	pathsFailed  int
	skeletalIn   int
	skeletalOut  int

	bus  *events.Bus
	subs []subscription
}

type subscription struct {
	tag components.Tag
	id  events.ListenerID
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(1)
	if dt > 0 {
		ticksPerWindow = max(1, int64(windowDurationSec/dt))
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Attach subscribes the collector to the gameplay events it counts.
func (c *Collector) Attach(bus *events.Bus) {
	c.Detach()
	c.bus = bus
	c.listen(events.CombatHit, func(_ components.Tag, _ components.Handle, p events.Payload) {
		c.hits++
		c.damage += p.Magnitude
	})
	c.listen(events.UnitDied, func(components.Tag, components.Handle, events.Payload) { c.kills++ })
	c.listen(events.UnitStunned, func(components.Tag, components.Handle, events.Payload) { c.stuns++ })
	c.listen(events.PathReady, func(components.Tag, components.Handle, events.Payload) { c.pathsReady++ })
	c.listen(events.PathFailed, func(components.Tag, components.Handle, events.Payload) { c.pathsFailed++ })
	c.listen(events.VisualSkeletal, func(components.Tag, components.Handle, events.Payload) { c.skeletalIn++ })
	c.listen(events.VisualVertex, func(components.Tag, components.Handle, events.Payload) { c.skeletalOut++ })
}

func (c *Collector) listen(tag components.Tag, fn events.Listener) {
	c.subs = append(c.subs, subscription{tag: tag, id: c.bus.Subscribe(tag, fn)})
}

// Detach removes every subscription made by Attach.
func (c *Collector) Detach() {
	if c.bus == nil {
		return
	}
	for _, s := range c.subs {
		c.bus.Unsubscribe(s.tag, s.id)
	}
	c.subs = c.subs[:0]
	c.bus = nil
}

// RecordPathRequests records path queries issued this tick.
func (c *Collector) RecordPathRequests(n int) {
	c.pathRequests += n
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the window's counters and a census taken
// at window end, then resets counters for the next window.
func (c *Collector) Flush(currentTick int64, sample *UnitSample) WindowStats {
	var killRate float64
	if c.hits > 0 {
		killRate = float64(c.kills) / float64(c.hits)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Hits:         c.hits,
		Kills:        c.kills,
		Stuns:        c.stuns,
		DamageDealt:  c.damage,
		PathRequests: c.pathRequests,
		PathsReady:   c.pathsReady,
		PathsFailed:  c.pathsFailed,
		SkeletalIn:   c.skeletalIn,
		SkeletalOut:  c.skeletalOut,
		KillRate:     killRate,
	}

	if sample != nil {
		stats.Alive = sample.Alive
		stats.Dead = sample.Dead
		stats.Moving = sample.Moving
		stats.Attacking = sample.Attacking
		stats.Stunned = sample.Stunned
		stats.Teams = len(sample.TeamAlive)
		stats.TeamAlive = make(map[int32]int, len(sample.TeamAlive))
		for id, n := range sample.TeamAlive {
			stats.TeamAlive[id] = n
		}
		stats.HealthMean, stats.HealthP10, stats.HealthP50, stats.HealthP90 = ComputeHealthStats(sample.Healths)
	}

	c.windowStartTick = currentTick
	c.hits, c.kills, c.stuns = 0, 0, 0
	c.damage = 0
	c.pathRequests, c.pathsReady, c.pathsFailed = 0, 0, 0
	c.skeletalIn, c.skeletalOut = 0, 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
