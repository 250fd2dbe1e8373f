package events

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/legion/components"
)

type mapBridge map[components.Handle]map[string]float64

func (m mapBridge) Attribute(h components.Handle, name string) (float64, bool) {
	v, ok := m[h][name]
	return v, ok
}

func (m mapBridge) SetAttribute(h components.Handle, name string, value float64) bool {
	attrs, ok := m[h]
	if !ok {
		return false
	}
	attrs[name] = value
	return true
}

const rageScript = `
function on_event(tag, unit, payload)
  if tag == "Event.Combat.Hit" then
    local dmg = get_attribute(payload.instigator, "Damage")
    if dmg ~= nil then
      set_attribute(payload.instigator, "Damage", dmg + payload.magnitude)
    end
  end
end
`

func TestLuaListener_SetsAttributes(t *testing.T) {
	attacker := components.Handle{Index: 1, Generation: 1}
	defender := components.Handle{Index: 2, Generation: 1}
	bridge := mapBridge{
		attacker: {"Damage": 10},
		defender: {"Health": 100},
	}

	l, err := NewLuaListenerString("rage", rageScript, bridge)
	if err != nil {
		t.Fatalf("load script: %v", err)
	}
	defer l.Close()

	bus := NewBus()
	l.Attach(bus, CombatHit)
	bus.Dispatch(CombatHit, defender, Payload{Instigator: attacker, Target: defender, Magnitude: 2})

	if got := bridge[attacker]["Damage"]; got != 12 {
		t.Errorf("attacker Damage = %v, want 12", got)
	}

	l.Detach(bus)
	bus.Dispatch(CombatHit, defender, Payload{Instigator: attacker, Magnitude: 2})
	if got := bridge[attacker]["Damage"]; got != 12 {
		t.Errorf("detached script still ran: Damage = %v", got)
	}
}

func TestLuaListener_ScriptErrorIsDropped(t *testing.T) {
	l, err := NewLuaListenerString("broken", `function on_event() error("boom") end`, mapBridge{})
	if err != nil {
		t.Fatalf("load script: %v", err)
	}
	defer l.Close()

	// Must not panic
	l.Handle(UnitDied, components.NilHandle, Payload{})
}

func TestLuaListener_LoadErrors(t *testing.T) {
	if _, err := NewLuaListenerString("syntax", "function (", nil); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := NewLuaListener(filepath.Join(t.TempDir(), "missing.lua"), nil); err == nil {
		t.Error("expected missing file error")
	}
}

func TestLuaListener_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.lua")
	src := `deaths = 0
function on_event(tag, unit, payload) deaths = deaths + 1 end`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLuaListener(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer l.Close()

	l.Handle(UnitDied, components.NilHandle, Payload{})
	l.Handle(UnitDied, components.NilHandle, Payload{})

	if got := l.vm.GetGlobal("deaths").String(); got != "2" {
		t.Errorf("deaths = %s, want 2", got)
	}
}
