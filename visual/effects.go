package visual

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/events"
)

// EffectType identifies the type of effect particle.
type EffectType uint8

const (
	EffectHit EffectType = iota
	EffectDeath
	EffectStun
)

// Effect is a short-lived combat feedback particle in world units.
type Effect struct {
	Position r3.Vec
	Velocity r3.Vec  // units per second
	Life     float64 // seconds left
	MaxLife  float64
	Type     EffectType
	Size     float64
}

// Effects spawns feedback particles from gameplay events. It runs on the
// tick goroutine.
type Effects struct {
	Particles    []Effect
	maxParticles int
	store        *entity.Store
	rng          *rand.Rand

	bus  *events.Bus
	subs []events.ListenerID
	tags []components.Tag
}

// NewEffects creates an effect system holding at most maxParticles particles.
func NewEffects(store *entity.Store, maxParticles int, rng *rand.Rand) *Effects {
	if maxParticles <= 0 {
		maxParticles = 500
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Effects{
		Particles:    make([]Effect, 0, maxParticles),
		maxParticles: maxParticles,
		store:        store,
		rng:          rng,
	}
}

// Attach subscribes to hit, death and stun events.
func (s *Effects) Attach(bus *events.Bus) {
	s.bus = bus
	s.listen(events.CombatHit, func(_ components.Tag, _ components.Handle, p events.Payload) {
		if pos, ok := s.position(p.Target); ok {
			s.EmitHit(pos)
		}
	})
	s.listen(events.UnitDied, func(_ components.Tag, unit components.Handle, _ events.Payload) {
		if pos, ok := s.position(unit); ok {
			s.EmitDeath(pos)
		}
	})
	s.listen(events.UnitStunned, func(_ components.Tag, unit components.Handle, _ events.Payload) {
		if pos, ok := s.position(unit); ok {
			s.emit(pos, EffectStun)
		}
	})
}

func (s *Effects) listen(tag components.Tag, fn events.Listener) {
	s.tags = append(s.tags, tag)
	s.subs = append(s.subs, s.bus.Subscribe(tag, fn))
}

// Detach removes the subscriptions made by Attach.
func (s *Effects) Detach() {
	if s.bus == nil {
		return
	}
	for i, id := range s.subs {
		s.bus.Unsubscribe(s.tags[i], id)
	}
	s.subs, s.tags, s.bus = nil, nil, nil
}

func (s *Effects) position(unit components.Handle) (r3.Vec, bool) {
	tf := s.store.Transform(unit)
	if tf == nil {
		return r3.Vec{}, false
	}
	return tf.Position, true
}

// Update ages and moves every particle by dt seconds.
func (s *Effects) Update(dt float64) {
	alive := 0
	drag := math.Pow(0.05, dt)
	for i := range s.Particles {
		p := &s.Particles[i]

		p.Life -= dt
		if p.Life <= 0 {
			continue
		}

		switch p.Type {
		case EffectDeath:
			// Settle toward the ground
			p.Velocity.Z -= 40 * dt
		case EffectStun:
			// Drift upward
			p.Velocity.Z += 20 * dt
		}

		p.Velocity = r3.Scale(drag, p.Velocity)
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))

		s.Particles[alive] = *p
		alive++
	}
	s.Particles = s.Particles[:alive]
}

// EmitHit emits a radial burst of 4-7 sparks.
func (s *Effects) EmitHit(pos r3.Vec) {
	count := 4 + s.rng.Intn(4)
	for i := 0; i < count; i++ {
		s.emit(pos, EffectHit)
	}
}

// EmitDeath emits a single slow, long-lived particle.
func (s *Effects) EmitDeath(pos r3.Vec) {
	s.emit(pos, EffectDeath)
}

func (s *Effects) emit(pos r3.Vec, typ EffectType) {
	if len(s.Particles) >= s.maxParticles {
		return
	}

	var vel r3.Vec
	var life, size float64
	switch typ {
	case EffectHit:
		angle := s.rng.Float64() * 2 * math.Pi
		speed := 60 + s.rng.Float64()*80
		vel = r3.Vec{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}
		life = 0.3 + s.rng.Float64()*0.3
		size = 6 + s.rng.Float64()*4
	case EffectDeath:
		vel = r3.Vec{X: (s.rng.Float64() - 0.5) * 10, Y: (s.rng.Float64() - 0.5) * 10}
		life = 1.5 + s.rng.Float64()
		size = 20 + s.rng.Float64()*10
	default:
		vel = r3.Vec{X: (s.rng.Float64() - 0.5) * 20, Y: (s.rng.Float64() - 0.5) * 20}
		life = 0.8 + s.rng.Float64()*0.4
		size = 8 + s.rng.Float64()*4
	}

	s.Particles = append(s.Particles, Effect{
		Position: r3.Add(pos, r3.Vec{X: (s.rng.Float64() - 0.5) * 10, Y: (s.rng.Float64() - 0.5) * 10}),
		Velocity: vel,
		Life:     life,
		MaxLife:  life,
		Type:     typ,
		Size:     size,
	})
}

// Count returns the current number of active particles.
func (s *Effects) Count() int {
	return len(s.Particles)
}
