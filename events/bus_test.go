package events

import (
	"testing"

	"github.com/pthm-cable/legion/components"
)

func TestBus_DispatchExactAndParent(t *testing.T) {
	bus := NewBus()
	unit := components.Handle{Index: 3, Generation: 1}

	var exact, parentHits, other int
	bus.Subscribe(UnitDied, func(tag components.Tag, h components.Handle, p Payload) {
		exact++
		if h != unit {
			t.Errorf("listener got %v, want %v", h, unit)
		}
		if p.Magnitude != 12 {
			t.Errorf("payload magnitude = %v", p.Magnitude)
		}
	})
	bus.Subscribe("Event.Unit", func(tag components.Tag, h components.Handle, p Payload) {
		parentHits++
		if tag != UnitDied {
			t.Errorf("parent listener saw tag %q, want %q", tag, UnitDied)
		}
	})
	bus.Subscribe(CombatHit, func(components.Tag, components.Handle, Payload) { other++ })

	bus.Dispatch(UnitDied, unit, Payload{Magnitude: 12})

	if exact != 1 || parentHits != 1 {
		t.Errorf("exact=%d parent=%d, want 1/1", exact, parentHits)
	}
	if other != 0 {
		t.Errorf("unrelated listener fired %d times", other)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	id := bus.Subscribe(CombatHit, func(components.Tag, components.Handle, Payload) { calls++ })
	bus.Subscribe(CombatHit, func(components.Tag, components.Handle, Payload) { calls += 10 })

	bus.Unsubscribe(CombatHit, id)
	bus.Dispatch(CombatHit, components.NilHandle, Payload{})

	if calls != 10 {
		t.Errorf("calls = %d, want only the remaining listener", calls)
	}
	if bus.Count(CombatHit) != 1 {
		t.Errorf("count = %d, want 1", bus.Count(CombatHit))
	}
}

func TestBus_InvalidTagIgnored(t *testing.T) {
	bus := NewBus()
	if id := bus.Subscribe("", func(components.Tag, components.Handle, Payload) {}); id != 0 {
		t.Errorf("expected zero id for empty tag, got %d", id)
	}
	// Must not panic
	bus.Dispatch("", components.NilHandle, Payload{})

	var nilBus *Bus
	nilBus.Dispatch(UnitDied, components.NilHandle, Payload{})
}

func TestBus_ListenerMaySubscribe(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(UnitSpawned, func(components.Tag, components.Handle, Payload) {
		bus.Subscribe(UnitDied, func(components.Tag, components.Handle, Payload) {})
	})
	bus.Dispatch(UnitSpawned, components.NilHandle, Payload{})
	if bus.Count(UnitDied) != 1 {
		t.Error("expected listener registered from inside dispatch")
	}
}
