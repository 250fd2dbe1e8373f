package systems

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/events"
)

// HitResult describes one resolved attack.
type HitResult struct {
	Attacker components.Handle
	Defender components.Handle
	Damage   float64
	Killed   bool
	Stunned  bool
	Fallback bool // resolved by the level-only heuristic
}

// CombatSystem resolves attacks between units of different teams.
//
// Two resolution modes exist. Defenders carrying a Health attribute lose
// health, floored at zero, and die at zero. Defenders without attributes are
// resolved by the level-only fallback: any positive damage kills.
type CombatSystem struct {
	store  *entity.Store
	events events.Dispatcher
	rng    *rand.Rand
	filter *ecs.Filter5[
		components.Transform,
		components.UnitState,
		components.Target,
		components.Ability,
		components.Team,
	]

	attackRangeSq  float64
	cooldown       float64
	multiplier     float64
	stunChance     float64
	stunDuration   float64
	damagePerLevel float64

	pending []HitResult
}

// NewCombatSystem creates the combat system. bus may be nil.
func NewCombatSystem(store *entity.Store, cfg *config.Config, bus events.Dispatcher, rng *rand.Rand) *CombatSystem {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &CombatSystem{
		store:  store,
		events: bus,
		rng:    rng,
		filter: ecs.NewFilter5[
			components.Transform,
			components.UnitState,
			components.Target,
			components.Ability,
			components.Team,
		](store.World()),
		attackRangeSq:  cfg.Derived.AttackRangeSq,
		cooldown:       cfg.Combat.AttackCooldown,
		multiplier:     cfg.Combat.DamageMultiplier,
		stunChance:     cfg.Combat.StunChance,
		stunDuration:   cfg.Combat.StunDuration,
		damagePerLevel: cfg.Combat.FallbackDamagePerLevel,
	}
}

// Update resolves this frame's attacks and returns them. The returned slice is
// reused on the next call.
func (s *CombatSystem) Update() []HitResult {
	s.pending = s.pending[:0]

	query := s.filter.Query()
	for query.Next() {
		tf, st, tgt, ab, team := query.Get()

		if st.IsDead() {
			continue
		}
		if st.Current == components.StateStunned {
			if st.StateTime >= s.stunDuration {
				st.Enter(components.StateIdle)
			}
			continue
		}
		if tgt.Entity.IsNil() {
			if st.Current == components.StateAttacking {
				st.Enter(components.StateIdle)
			}
			continue
		}

		defTf := s.store.Transform(tgt.Entity)
		defSt := s.store.State(tgt.Entity)
		if defTf == nil || defSt == nil || defSt.IsDead() {
			tgt.Clear()
			if st.Current == components.StateAttacking {
				st.Enter(components.StateIdle)
			}
			continue
		}
		if defTeam := s.store.Team(tgt.Entity); defTeam == nil || defTeam.ID == team.ID {
			continue
		}

		if distSq(tf.Position, defTf.Position) > s.attackRangeSq {
			if st.Current == components.StateAttacking {
				st.Enter(components.StateMoving)
			}
			tgt.Location = defTf.Position
			continue
		}

		st.Enter(components.StateAttacking)
		if st.StateTime < s.cooldown {
			continue
		}
		st.StateTime = 0

		attacker, _ := s.store.HandleOf(query.Entity())
		s.pending = append(s.pending, s.resolve(attacker, st, ab, tgt.Entity, defSt))
	}

	// Listeners may touch the world, so dispatch after the query closes.
	for _, hit := range s.pending {
		s.announce(hit)
	}
	return s.pending
}

// resolve applies one interaction from attacker to defender.
func (s *CombatSystem) resolve(attacker components.Handle, st *components.UnitState, ab *components.Ability, defender components.Handle, defSt *components.UnitState) HitResult {
	hit := HitResult{Attacker: attacker, Defender: defender, Damage: s.damage(st, ab)}

	defAb := s.store.Ability(defender)
	hp, ok := 0.0, false
	if defAb != nil {
		hp, ok = defAb.Attribute(components.AttrHealth)
	}

	if !ok {
		hit.Fallback = true
		if hit.Damage > 0 {
			defSt.Enter(components.StateDead)
			hit.Killed = true
		}
		return hit
	}

	hp = math.Max(0, hp-hit.Damage)
	defAb.Attributes[components.AttrHealth] = hp
	if hp == 0 {
		defSt.Enter(components.StateDead)
		hit.Killed = true
		return hit
	}
	if s.rng.Float64() < s.stunChance && defSt.Enter(components.StateStunned) {
		hit.Stunned = true
	}
	return hit
}

// damage uses the Damage attribute when present, else the level heuristic.
func (s *CombatSystem) damage(st *components.UnitState, ab *components.Ability) float64 {
	if d, ok := ab.Attribute(components.AttrDamage); ok {
		return d
	}
	return float64(st.Level) * s.damagePerLevel * s.multiplier
}

func (s *CombatSystem) announce(hit HitResult) {
	if hit.Killed {
		slog.Debug("unit_killed", "attacker", hit.Attacker.String(), "defender", hit.Defender.String(), "fallback", hit.Fallback)
	}
	if s.events == nil {
		return
	}
	s.events.Dispatch(events.CombatHit, hit.Attacker, events.Payload{
		Instigator: hit.Attacker,
		Target:     hit.Defender,
		Magnitude:  hit.Damage,
	})
	if hit.Killed {
		s.events.Dispatch(events.UnitDied, hit.Defender, events.Payload{Instigator: hit.Attacker})
	}
	if hit.Stunned {
		s.events.Dispatch(events.UnitStunned, hit.Defender, events.Payload{Instigator: hit.Attacker})
	}
}
