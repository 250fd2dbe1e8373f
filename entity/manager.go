package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/events"
)

var (
	ErrStaleHandle     = errors.New("entity: stale handle")
	ErrCapacity        = errors.New("entity: unit capacity reached")
	ErrUnknownTemplate = errors.New("entity: unknown template")
)

// DestroyHook runs while the handle is still valid, before the unit is removed.
type DestroyHook func(unit components.Handle)

// Manager spawns and destroys units and keeps the type and team indexes
// consistent with the registry.
type Manager struct {
	store     *Store
	maxUnits  int
	templates map[string]Template
	byType    map[components.Tag]map[components.Handle]struct{}
	byTeam    map[int32]map[components.Handle]struct{}
	indexed   map[components.Handle]indexKeys
	hooks     []DestroyHook
	events    events.Dispatcher
}

// NewManager creates a manager over store. bus may be nil.
func NewManager(store *Store, maxUnits int, bus events.Dispatcher) *Manager {
	return &Manager{
		store:     store,
		maxUnits:  maxUnits,
		templates: make(map[string]Template),
		byType:    make(map[components.Tag]map[components.Handle]struct{}),
		byTeam:    make(map[int32]map[components.Handle]struct{}),
		indexed:   make(map[components.Handle]indexKeys),
		events:    bus,
	}
}

// indexKeys are the keys a unit was indexed under at spawn. Destroy removes
// these, not the current component values, which callers may have changed.
type indexKeys struct {
	unitType components.Tag
	team     int32
}

// Store returns the underlying component store.
func (m *Manager) Store() *Store { return m.store }

// RegisterTemplate makes t available to SpawnByName, replacing any template of the same name.
func (m *Manager) RegisterTemplate(t Template) {
	m.templates[t.Name] = t
}

// LoadTemplates registers every template in cfg.
func (m *Manager) LoadTemplates(cfg *config.Config) {
	for _, tc := range cfg.Templates {
		m.RegisterTemplate(TemplateFromConfig(tc))
	}
}

// Template returns a registered template.
func (m *Manager) Template(name string) (Template, bool) {
	t, ok := m.templates[name]
	return t, ok
}

// OnDestroy registers a hook run for every destroyed unit.
func (m *Manager) OnDestroy(hook DestroyHook) {
	m.hooks = append(m.hooks, hook)
}

// Spawn creates a unit from t at tf and registers it in the indexes.
func (m *Manager) Spawn(t *Template, tf components.Transform) (components.Handle, error) {
	if m.maxUnits > 0 && m.store.Len() >= m.maxUnits {
		slog.Warn("spawn_rejected", "reason", "capacity", "max_units", m.maxUnits, "template", t.Name)
		return components.NilHandle, ErrCapacity
	}

	u := t.build(tf)
	h := m.store.Create(&u)

	addIndex(m.byType, t.UnitType, h)
	addIndex(m.byTeam, t.TeamID, h)
	m.indexed[h] = indexKeys{unitType: t.UnitType, team: t.TeamID}

	m.dispatch(events.UnitSpawned, h, events.Payload{})
	return h, nil
}

// SpawnByName spawns from a registered template.
func (m *Manager) SpawnByName(name string, tf components.Transform) (components.Handle, error) {
	t, ok := m.templates[name]
	if !ok {
		return components.NilHandle, fmt.Errorf("spawn %q: %w", name, ErrUnknownTemplate)
	}
	return m.Spawn(&t, tf)
}

// Destroy runs destroy hooks, removes the unit from every index and invalidates
// the handle, all in one step. Stale handles are a logged no-op.
func (m *Manager) Destroy(h components.Handle) bool {
	if !m.store.IsValid(h) {
		slog.Warn("stale_handle", "op", "destroy", "unit", h.String())
		return false
	}

	for _, hook := range m.hooks {
		hook(h)
	}

	if keys, ok := m.indexed[h]; ok {
		removeIndex(m.byType, keys.unitType, h)
		removeIndex(m.byTeam, keys.team, h)
		delete(m.indexed, h)
	}

	m.dispatch(events.UnitDestroyed, h, events.Payload{})
	return m.store.Destroy(h)
}

// DestroyAll destroys every live unit.
func (m *Manager) DestroyAll() {
	for _, h := range m.store.Handles() {
		m.Destroy(h)
	}
}

// IsValid reports whether h refers to a live unit.
func (m *Manager) IsValid(h components.Handle) bool { return m.store.IsValid(h) }

// Count returns the number of live units.
func (m *Manager) Count() int { return m.store.Len() }

// UnitsByType returns the live units of a type in slot order.
func (m *Manager) UnitsByType(tag components.Tag) []components.Handle {
	return sortedIndex(m.byType[tag])
}

// UnitsByTeam returns the live units of a team in slot order.
func (m *Manager) UnitsByTeam(team int32) []components.Handle {
	return sortedIndex(m.byTeam[team])
}

// Teams returns the ids of teams with live units, ascending.
func (m *Manager) Teams() []int32 {
	ids := make([]int32, 0, len(m.byTeam))
	for id := range m.byTeam {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Attribute reads a named attribute of h.
func (m *Manager) Attribute(h components.Handle, name string) (float64, bool) {
	ab := m.store.Ability(h)
	if ab == nil {
		return 0, false
	}
	return ab.Attribute(name)
}

// SetAttribute writes a named attribute of h. Units without an attribute map get one.
func (m *Manager) SetAttribute(h components.Handle, name string, value float64) bool {
	ab := m.store.Ability(h)
	if ab == nil {
		slog.Warn("stale_handle", "op", "set_attribute", "unit", h.String(), "attribute", name)
		return false
	}
	if ab.Attributes == nil {
		ab.Attributes = make(map[string]float64)
	}
	ab.Attributes[name] = value
	return true
}

func (m *Manager) dispatch(tag components.Tag, h components.Handle, p events.Payload) {
	if m.events != nil {
		m.events.Dispatch(tag, h, p)
	}
}

func addIndex[K comparable](idx map[K]map[components.Handle]struct{}, key K, h components.Handle) {
	set, ok := idx[key]
	if !ok {
		set = make(map[components.Handle]struct{})
		idx[key] = set
	}
	set[h] = struct{}{}
}

func removeIndex[K comparable](idx map[K]map[components.Handle]struct{}, key K, h components.Handle) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func sortedIndex(set map[components.Handle]struct{}) []components.Handle {
	out := make([]components.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b components.Handle) int {
		return int(a.Index) - int(b.Index)
	})
	return out
}
