// Package events is the tag-keyed publish/subscribe registry for gameplay events.
// The simulation only dispatches; listeners are registered from outside.
package events

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pthm-cable/legion/components"
)

// Event tags dispatched by the simulation.
const (
	UnitSpawned    components.Tag = "Event.Unit.Spawned"
	UnitDestroyed  components.Tag = "Event.Unit.Destroyed"
	UnitDied       components.Tag = "Event.Unit.Died"
	UnitStunned    components.Tag = "Event.Unit.Stunned"
	CombatHit      components.Tag = "Event.Combat.Hit"
	VisualSkeletal components.Tag = "Event.Visual.Skeletal"
	VisualVertex   components.Tag = "Event.Visual.Vertex"
	PathReady      components.Tag = "Event.Path.Ready"
	PathFailed     components.Tag = "Event.Path.Failed"
)

// Payload carries event data. Unused fields are zero.
type Payload struct {
	Instigator components.Handle
	Target     components.Handle
	Magnitude  float64
	Values     map[string]float64
}

// Listener receives a dispatched event.
type Listener func(tag components.Tag, unit components.Handle, p Payload)

// ListenerID identifies a subscription for Unsubscribe.
type ListenerID uint64

type subscription struct {
	id ListenerID
	fn Listener
}

// Dispatcher is the dispatch side of the bus, as seen by the simulation.
type Dispatcher interface {
	Dispatch(tag components.Tag, unit components.Handle, p Payload)
}

// Bus routes events to listeners registered on the exact tag or any parent tag,
// so a listener on "Event.Unit" sees "Event.Unit.Died".
type Bus struct {
	mu        sync.RWMutex
	listeners map[components.Tag][]subscription
	nextID    ListenerID
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[components.Tag][]subscription)}
}

// Subscribe registers fn for tag and its children. Invalid tags are ignored.
func (b *Bus) Subscribe(tag components.Tag, fn Listener) ListenerID {
	if !tag.IsValid() || fn == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[tag] = append(b.listeners[tag], subscription{id: b.nextID, fn: fn})
	slog.Debug("event_listener_registered", "tag", tag, "id", b.nextID)
	return b.nextID
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (b *Bus) Unsubscribe(tag components.Tag, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[tag]
	for i, s := range subs {
		if s.id == id {
			b.listeners[tag] = append(subs[:i:i], subs[i+1:]...)
			if len(b.listeners[tag]) == 0 {
				delete(b.listeners, tag)
			}
			return
		}
	}
}

// Dispatch calls every listener for tag and its parents, most specific first.
// Listeners run outside the lock and may subscribe or unsubscribe.
func (b *Bus) Dispatch(tag components.Tag, unit components.Handle, p Payload) {
	if b == nil || !tag.IsValid() {
		return
	}

	var targets []Listener
	b.mu.RLock()
	for t := tag; t != ""; t = parent(t) {
		for _, s := range b.listeners[t] {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(tag, unit, p)
	}
}

// Count returns the number of listeners registered on exactly tag.
func (b *Bus) Count(tag components.Tag) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[tag])
}

func parent(t components.Tag) components.Tag {
	i := strings.LastIndexByte(string(t), '.')
	if i < 0 {
		return ""
	}
	return t[:i]
}
