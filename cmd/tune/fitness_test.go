package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/legion/config"
)

func TestParamVector_NormalizeAndClamp(t *testing.T) {
	pv := NewParamVector(config.Default())
	def := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: %v after normalize/denormalize, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}

	clamped := pv.Clamp([]float64{-1, 1e9, 360})
	if clamped[paramAcceleration] != 100 || clamped[paramDeceleration] != 8000 || clamped[paramTurningRate] != 360 {
		t.Errorf("clamped = %v", clamped)
	}
}

func TestFitnessEvaluator_Deterministic(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)
	fe := NewFitnessEvaluator(pv, cfg, 20, 25)

	a := fe.Evaluate(pv.DefaultVector())
	b := fe.Evaluate(pv.DefaultVector())
	if a != b {
		t.Errorf("fitness %v then %v for the same parameters", a, b)
	}
	if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		t.Errorf("fitness = %v, want a positive finite value", a)
	}
	if s := fe.LastSettle(); s <= 0 || s > 20 {
		t.Errorf("settle = %v, want within (0, 20]", s)
	}
}

func TestFitnessEvaluator_DoesNotMutateBase(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)
	fe := NewFitnessEvaluator(pv, cfg, 5, 25)

	fe.Evaluate([]float64{4000, 7000, 90})
	if cfg.Movement.Acceleration != pv.Specs[paramAcceleration].Default {
		t.Errorf("base acceleration changed to %v", cfg.Movement.Acceleration)
	}
}
