package entity

import (
	"image/color"
	"maps"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
)

// Template supplies the initial component values of a spawned unit.
type Template struct {
	Name             string
	UnitType         components.Tag
	UnitClass        components.Tag
	Level            int
	BaseHealth       float64
	BaseDamage       float64
	MoveSpeed        float64
	TeamID           int32
	TeamColor        color.RGBA
	Faction          components.Tag
	DefaultBehavior  components.Tag
	DefaultFormation components.Tag
	Abilities        []components.Tag
	Attributes       map[string]float64
	Scale            float64
	// NoAttributes leaves the attribute map nil (level-only combat fallback).
	NoAttributes bool
}

// DefaultTemplate returns a template with the stock tags and stats.
func DefaultTemplate() Template {
	return Template{
		Name:             "default",
		UnitType:         "Unit.Default",
		UnitClass:        "Class.Soldier",
		Level:            1,
		BaseHealth:       100,
		BaseDamage:       10,
		MoveSpeed:        300,
		TeamColor:        color.RGBA{255, 255, 255, 255},
		Faction:          "Faction.Neutral",
		DefaultBehavior:  "Behavior.Aggressive",
		DefaultFormation: "Formation.Line",
		Scale:            1,
	}
}

// TemplateFromConfig fills a template from its file form; unset fields keep the defaults.
func TemplateFromConfig(tc config.TemplateConfig) Template {
	t := DefaultTemplate()
	t.Name = tc.Name
	if tc.UnitType != "" {
		t.UnitType = components.Tag(tc.UnitType)
	}
	if tc.UnitClass != "" {
		t.UnitClass = components.Tag(tc.UnitClass)
	}
	if tc.Level > 0 {
		t.Level = tc.Level
	}
	if tc.BaseHealth > 0 {
		t.BaseHealth = tc.BaseHealth
	}
	if tc.BaseDamage > 0 {
		t.BaseDamage = tc.BaseDamage
	}
	if tc.MoveSpeed > 0 {
		t.MoveSpeed = tc.MoveSpeed
	}
	t.TeamID = tc.TeamID
	if tc.TeamColor != [3]uint8{} {
		t.TeamColor = color.RGBA{tc.TeamColor[0], tc.TeamColor[1], tc.TeamColor[2], 255}
	}
	if tc.Faction != "" {
		t.Faction = components.Tag(tc.Faction)
	}
	if tc.DefaultBehavior != "" {
		t.DefaultBehavior = components.Tag(tc.DefaultBehavior)
	}
	if tc.DefaultFormation != "" {
		t.DefaultFormation = components.Tag(tc.DefaultFormation)
	}
	for _, a := range tc.Abilities {
		t.Abilities = append(t.Abilities, components.Tag(a))
	}
	if len(tc.Attributes) > 0 {
		t.Attributes = maps.Clone(tc.Attributes)
	}
	if tc.Scale > 0 {
		t.Scale = tc.Scale
	}
	t.NoAttributes = tc.NoAttributes
	return t
}

// RequiredComponents names the components every unit from a template carries.
func (t *Template) RequiredComponents() []string {
	return []string{
		"Transform", "Velocity", "Force", "LookAt", "UnitState", "Target",
		"Ability", "Team", "Visual", "Formation", "Navigation", "LOD",
	}
}

// baseAttributes merges explicit attributes over Health, Damage and Speed from the base stats.
func (t *Template) baseAttributes() map[string]float64 {
	if t.NoAttributes {
		return nil
	}
	attrs := map[string]float64{
		components.AttrHealth: t.BaseHealth,
		components.AttrDamage: t.BaseDamage,
		components.AttrSpeed:  t.MoveSpeed,
	}
	maps.Copy(attrs, t.Attributes)
	return attrs
}

// build produces the component bundle for a unit placed at tf.
func (t *Template) build(tf components.Transform) Unit {
	if tf.Scale == (r3.Vec{}) {
		s := t.Scale
		if s <= 0 {
			s = 1
		}
		tf.Scale = r3.Vec{X: s, Y: s, Z: s}
	}

	var formation components.Formation
	formation.Reset()

	return Unit{
		Transform: tf,
		State: components.UnitState{
			Current:  components.StateIdle,
			UnitType: t.UnitType,
			Level:    t.Level,
		},
		Team: components.Team{
			ID:      t.TeamID,
			Color:   t.TeamColor,
			Faction: t.Faction,
		},
		Ability: components.Ability{
			Granted:    append([]components.Tag(nil), t.Abilities...),
			Attributes: t.baseAttributes(),
		},
		Visual: components.Visual{
			CurrentAnimation: "Anim.Idle",
			TargetAnimation:  "Anim.Idle",
			BlendAlpha:       1,
			Visible:          true,
			MeshIndex:        components.NoMesh,
		},
		Formation: formation,
	}
}
