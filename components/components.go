// Package components defines ECS components for the unit simulation.
package components

import (
	"fmt"
	"strings"
)

// Handle references a unit by slot index and generation.
// A handle is only valid while its generation matches the registry slot.
type Handle struct {
	Index      uint32
	Generation uint32
}

// NilHandle is the zero handle. Generations start at 1, so it never resolves.
var NilHandle = Handle{}

// IsNil reports whether h is the zero handle.
func (h Handle) IsNil() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	if h.IsNil() {
		return "unit(nil)"
	}
	return fmt.Sprintf("unit(%d:%d)", h.Index, h.Generation)
}

// Tag is a dotted hierarchical gameplay tag such as "Unit.Infantry".
type Tag string

// Matches reports whether t equals parent or is nested under it.
func (t Tag) Matches(parent Tag) bool {
	if t == parent {
		return true
	}
	return strings.HasPrefix(string(t), string(parent)+".")
}

// IsValid reports whether the tag is non-empty.
func (t Tag) IsValid() bool { return t != "" }

// State is the behavioural state of a unit.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateAttacking
	StateDefending
	StateDead
	StateInteracting
	StateStunned
	StateCustom
)

var stateNames = [...]string{"Idle", "Moving", "Attacking", "Defending", "Dead", "Interacting", "Stunned", "Custom"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// StateCount returns the number of defined states.
func StateCount() int { return len(stateNames) }

// Well-known attribute names.
const (
	AttrHealth = "Health"
	AttrDamage = "Damage"
	AttrSpeed  = "Speed"
)
