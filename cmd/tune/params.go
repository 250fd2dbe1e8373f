package main

import (
	"github.com/pthm-cable/legion/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of tunable movement parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// Indexes into a parameter vector.
const (
	paramAcceleration = iota
	paramDeceleration
	paramTurningRate
)

// NewParamVector creates the movement parameter set, defaulting to cfg.
func NewParamVector(cfg *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "acceleration", Path: "movement.acceleration", Min: 100, Max: 5000, Default: cfg.Movement.Acceleration},
			{Name: "deceleration", Path: "movement.deceleration", Min: 100, Max: 8000, Default: cfg.Movement.Deceleration},
			{Name: "turning_rate", Path: "movement.turning_rate", Min: 45, Max: 720, Default: cfg.Movement.TurningRate},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	cfg.Movement.Acceleration = values[paramAcceleration]
	cfg.Movement.Deceleration = values[paramDeceleration]
	cfg.Movement.TurningRate = values[paramTurningRate]
}
