package telemetry

import (
	"sort"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/events"
)

// LifetimeStats tracks one unit's combat record.
type LifetimeStats struct {
	Unit        components.Handle `csv:"-"`
	UnitID      string            `csv:"unit"`
	Team        int32             `csv:"team"`
	SpawnTick   int64             `csv:"spawn_tick"`
	DeathTick   int64             `csv:"death_tick"` // -1 while alive
	Hits        int               `csv:"hits"`
	Kills       int               `csv:"kills"`
	DamageDealt float64           `csv:"damage_dealt"`
	DamageTaken float64           `csv:"damage_taken"`
}

// TeamLookup resolves a unit's team at spawn time.
type TeamLookup func(components.Handle) (int32, bool)

// LifetimeTracker keeps per-unit combat records and the best veterans among
// units that are gone.
type LifetimeTracker struct {
	stats    map[components.Handle]*LifetimeStats
	veterans []LifetimeStats
	maxVets  int
	team     TeamLookup
	tick     int64

	bus  *events.Bus
	subs []subscription
}

// NewLifetimeTracker creates a tracker keeping up to maxVeterans retired records.
func NewLifetimeTracker(maxVeterans int, team TeamLookup) *LifetimeTracker {
	return &LifetimeTracker{
		stats:   make(map[components.Handle]*LifetimeStats),
		maxVets: max(0, maxVeterans),
		team:    team,
	}
}

// SetTick sets the tick stamped on records created or closed from now on.
func (lt *LifetimeTracker) SetTick(tick int64) { lt.tick = tick }

// Attach subscribes the tracker to unit and combat events.
func (lt *LifetimeTracker) Attach(bus *events.Bus) {
	lt.bus = bus
	on := func(tag components.Tag, fn events.Listener) {
		lt.subs = append(lt.subs, subscription{tag: tag, id: bus.Subscribe(tag, fn)})
	}
	on(events.UnitSpawned, func(_ components.Tag, h components.Handle, _ events.Payload) {
		lt.Register(h)
	})
	on(events.CombatHit, func(_ components.Tag, _ components.Handle, p events.Payload) {
		lt.RecordHit(p.Instigator, p.Target, p.Magnitude)
	})
	on(events.UnitDied, func(_ components.Tag, h components.Handle, p events.Payload) {
		lt.RecordKill(p.Instigator, h)
	})
	on(events.UnitDestroyed, func(_ components.Tag, h components.Handle, _ events.Payload) {
		lt.Retire(h)
	})
}

// Detach removes every subscription made by Attach.
func (lt *LifetimeTracker) Detach() {
	if lt.bus == nil {
		return
	}
	for _, s := range lt.subs {
		lt.bus.Unsubscribe(s.tag, s.id)
	}
	lt.subs = nil
	lt.bus = nil
}

// Register creates a record for a new unit.
func (lt *LifetimeTracker) Register(h components.Handle) *LifetimeStats {
	s := &LifetimeStats{Unit: h, UnitID: h.String(), SpawnTick: lt.tick, DeathTick: -1}
	if lt.team != nil {
		s.Team, _ = lt.team(h)
	}
	lt.stats[h] = s
	return s
}

// Get returns the record for a unit, or nil if not tracked.
func (lt *LifetimeTracker) Get(h components.Handle) *LifetimeStats {
	return lt.stats[h]
}

// RecordHit credits the attacker and debits the defender.
func (lt *LifetimeTracker) RecordHit(attacker, defender components.Handle, damage float64) {
	if s := lt.stats[attacker]; s != nil {
		s.Hits++
		s.DamageDealt += damage
	}
	if s := lt.stats[defender]; s != nil {
		s.DamageTaken += damage
	}
}

// RecordKill credits the killer and stamps the victim's death tick.
func (lt *LifetimeTracker) RecordKill(killer, victim components.Handle) {
	if s := lt.stats[killer]; s != nil {
		s.Kills++
	}
	if s := lt.stats[victim]; s != nil && s.DeathTick < 0 {
		s.DeathTick = lt.tick
	}
}

// Retire removes a unit's record and considers it for the veteran list.
func (lt *LifetimeTracker) Retire(h components.Handle) {
	s := lt.stats[h]
	if s == nil {
		return
	}
	delete(lt.stats, h)
	if s.DeathTick < 0 {
		s.DeathTick = lt.tick
	}
	lt.consider(*s)
}

// consider inserts a record into the veteran list, ranked by kills then damage dealt.
func (lt *LifetimeTracker) consider(s LifetimeStats) {
	if lt.maxVets == 0 || (s.Kills == 0 && s.DamageDealt == 0) {
		return
	}
	i := sort.Search(len(lt.veterans), func(i int) bool { return outranks(s, lt.veterans[i]) })
	if i >= lt.maxVets {
		return
	}
	lt.veterans = append(lt.veterans, LifetimeStats{})
	copy(lt.veterans[i+1:], lt.veterans[i:])
	lt.veterans[i] = s
	if len(lt.veterans) > lt.maxVets {
		lt.veterans = lt.veterans[:lt.maxVets]
	}
}

func outranks(a, b LifetimeStats) bool {
	if a.Kills != b.Kills {
		return a.Kills > b.Kills
	}
	return a.DamageDealt > b.DamageDealt
}

// Veterans returns the best retired records, best first.
func (lt *LifetimeTracker) Veterans() []LifetimeStats {
	return lt.veterans
}

// Standings ranks every record, living and retired, and returns the top n.
func (lt *LifetimeTracker) Standings(n int) []LifetimeStats {
	all := make([]LifetimeStats, 0, len(lt.stats)+len(lt.veterans))
	all = append(all, lt.veterans...)
	for _, s := range lt.stats {
		if s.Kills > 0 || s.DamageDealt > 0 {
			all = append(all, *s)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return outranks(all[i], all[j]) })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Count returns the number of tracked living units.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
