package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/entity"
	"github.com/pthm-cable/legion/systems"
)

// trial is one formation march used to score a parameter vector.
type trial struct {
	template string
	shape    systems.Shape
	count    int
	march    r3.Vec // relative to the origin
}

var trials = []trial{
	{template: "infantry", shape: systems.ShapeRectangle, count: 24, march: r3.Vec{X: 2000}},
	{template: "cavalry", shape: systems.ShapeWedge, count: 15, march: r3.Vec{X: -1200, Y: 900}},
	{template: "archer", shape: systems.ShapeLine, count: 12, march: r3.Vec{Y: 2500}},
}

// trialResult holds the outcome of a single march.
type trialResult struct {
	settleSec float64 // maxTime when the formation never settled
	residual  float64 // mean slot distance at the end of the run
}

// FitnessEvaluator marches formations under candidate movement constants and
// scores how quickly the members come to rest on their slots.
type FitnessEvaluator struct {
	params    *ParamVector
	base      *config.Config
	maxTime   float64 // seconds
	settleTol float64 // distance and speed below which a member is settled

	mu         sync.Mutex
	lastSettle float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, base *config.Config, maxTime, settleTol float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:    params,
		base:      base,
		maxTime:   maxTime,
		settleTol: settleTol,
	}
}

// LastSettle returns the mean settle time of the most recent evaluation.
func (fe *FitnessEvaluator) LastSettle() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettle
}

// Evaluate returns the fitness of raw parameter values (lower = better): mean
// settle time across trials, plus a residual penalty for marches that never
// settled.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	values := fe.params.Clamp(raw)

	results := make([]trialResult, len(trials))
	var wg sync.WaitGroup
	for i, tr := range trials {
		wg.Add(1)
		go func(idx int, tr trial) {
			defer wg.Done()
			results[idx] = fe.run(values, tr)
		}(i, tr)
	}
	wg.Wait()

	var fitness, settle float64
	for _, r := range results {
		fitness += r.settleSec + r.residual/100
		settle += r.settleSec
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastSettle = settle / n
	fe.mu.Unlock()

	return fitness / n
}

// run marches one formation on its own store until it settles or time runs out.
func (fe *FitnessEvaluator) run(values []float64, tr trial) trialResult {
	cfg := *fe.base
	fe.params.ApplyToConfig(&cfg, values)

	store := entity.NewStore(tr.count)
	m := entity.NewManager(store, tr.count, nil)
	m.LoadTemplates(&cfg)
	formations := systems.NewFormationSystem(store, &cfg)
	movement := systems.NewMovementSystem(store, &cfg)
	movement.SetAcceleration(values[paramAcceleration], values[paramDeceleration])

	origin := r3.Vec{X: cfg.World.Width / 2, Y: cfg.World.Height / 2}
	id := formations.CreateFormation(origin, 0, tr.shape)
	for i := 0; i < tr.count; i++ {
		h, err := m.SpawnByName(tr.template, components.Transform{Position: origin})
		if err != nil {
			return trialResult{settleSec: fe.maxTime}
		}
		if err := formations.AddMember(id, h); err != nil {
			return trialResult{settleSec: fe.maxTime}
		}
	}
	members := formations.Members(id)
	for _, h := range members {
		store.Transform(h).Position = store.Target(h).Location
	}
	if err := formations.SetTarget(id, r3.Add(origin, tr.march)); err != nil {
		return trialResult{settleSec: fe.maxTime}
	}

	dt := cfg.Physics.DT
	for t := 0.0; t < fe.maxTime; t += dt {
		formations.Update(dt)
		movement.Update(dt)
		if !formations.IsMoving(id) && fe.settled(store, members) {
			return trialResult{settleSec: t + dt}
		}
	}
	return trialResult{settleSec: fe.maxTime, residual: meanSlotDistance(store, members)}
}

func (fe *FitnessEvaluator) settled(store *entity.Store, members []components.Handle) bool {
	tolSq := fe.settleTol * fe.settleTol
	for _, h := range members {
		tf, tgt, vel := store.Transform(h), store.Target(h), store.Velocity(h)
		if r3.Norm2(r3.Sub(tgt.Location, tf.Position)) > tolSq || r3.Norm2(vel.Value) > tolSq {
			return false
		}
	}
	return true
}

func meanSlotDistance(store *entity.Store, members []components.Handle) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, h := range members {
		sum += r3.Norm(r3.Sub(store.Target(h).Location, store.Transform(h).Position))
	}
	if math.IsNaN(sum) {
		return math.MaxFloat64
	}
	return sum / float64(len(members))
}
