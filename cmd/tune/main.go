// Package main searches movement constants for formations that settle quickly,
// using Nelder-Mead over normalized acceleration, deceleration and turning rate.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/legion/config"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	SettleSec    float64 `csv:"settle_sec"`
	Acceleration float64 `csv:"acceleration"`
	Deceleration float64 `csv:"deceleration"`
	TurningRate  float64 `csv:"turning_rate"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config file (empty = use defaults)")
	maxTime := flag.Float64("max-time", 60, "Simulated seconds allowed per march")
	settleTol := flag.Float64("settle-tol", 25, "Slot distance and speed counted as settled")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector(baseCfg)
	evaluator := NewFitnessEvaluator(params, baseCfg, *maxTime, *settleTol)

	var rows []evalRow
	bestFitness := evaluator.Evaluate(params.DefaultVector())
	bestParams := params.DefaultVector()
	fmt.Printf("Baseline: fitness=%.3f settle=%.2fs\n", bestFitness, evaluator.LastSettle())

	startTime := time.Now()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
			}

			rows = append(rows, evalRow{
				Eval:         len(rows) + 1,
				Fitness:      fitness,
				SettleSec:    evaluator.LastSettle(),
				Acceleration: raw[paramAcceleration],
				Deceleration: raw[paramDeceleration],
				TurningRate:  raw[paramTurningRate],
			})

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-len(rows)) * (elapsed / time.Duration(len(rows)))
			fmt.Printf("Eval %d/%d: fitness=%.3f settle=%.2fs (best=%.3f) | elapsed: %s, ETA: %s\n",
				len(rows), *maxEvals, fitness, evaluator.LastSettle(), bestFitness,
				formatDuration(elapsed), formatDuration(remaining))
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // trials already run concurrently
	}

	fmt.Printf("Starting Nelder-Mead over %d parameters, max_evals=%d\n", params.Dim(), *maxEvals)
	if _, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, &optimize.NelderMead{}); err != nil {
		log.Printf("optimization ended: %v", err)
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", len(rows), formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.3f\n", bestFitness)
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.3f\n", spec.Path, bestParams[i])
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	if f, err := os.Create(logPath); err != nil {
		log.Printf("failed to create log file: %v", err)
	} else {
		if err := gocsv.MarshalFile(&rows, f); err != nil {
			log.Printf("failed to write log: %v", err)
		}
		f.Close()
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
