package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sim"
	"github.com/pthm-cable/fluid/telemetry"
)

// Fitness component weights.
const (
	weightDensity = 1.0
	weightMotion  = 0.5
	weightEscape  = 2.0

	settleWindows = 2    // Skip the first N windows while the block collapses
	failedFitness = 1e6  // Assigned to runs that error out or blow up
	motionScale   = 0.05 // Residual mean speed considered still
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params        *ParamVector
	maxTicks      int
	seeds         []int64
	baseConfig    *config.Config
	targetDensity float64

	mu          sync.Mutex
	lastDensity float64 // Mean settled density from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config, targetDensity float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:        params,
		maxTicks:      maxTicks,
		seeds:         seeds,
		baseConfig:    baseCfg,
		targetDensity: targetDensity,
	}
}

// LastDensity returns the settled density from the most recent evaluation.
func (fe *FitnessEvaluator) LastDensity() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDensity
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	density float64
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]seedResult, len(fe.seeds))
	var g errgroup.Group
	for i, seed := range fe.seeds {
		g.Go(func() error {
			windows, err := fe.runSimulation(cfg, seed)
			if err != nil {
				results[i] = seedResult{fitness: failedFitness}
				return err
			}
			results[i] = fe.score(windows)
			return nil
		})
	}
	err := g.Wait()

	var totalFitness, totalDensity float64
	failed := 0
	for _, r := range results {
		totalFitness += r.fitness
		totalDensity += r.density
		if r.fitness >= failedFitness {
			failed++
		}
	}
	if err != nil {
		slog.Warn("seed run failed",
			"params", x,
			"failed_seeds", failed,
			"seeds", len(fe.seeds),
			"error", err,
		)
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastDensity = totalDensity / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation runs one headless block settle and returns every window.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) ([]telemetry.WindowStats, error) {
	var windows []telemetry.WindowStats
	r, err := sim.New(context.Background(), cfg, sim.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.Run(context.Background(), fe.maxTicks); err != nil {
		return windows, err
	}
	return windows, nil
}

// score turns a run's windows into a fitness. The settled windows should
// hold the target mean density, stay still and keep every particle out of
// the solids.
func (fe *FitnessEvaluator) score(windows []telemetry.WindowStats) seedResult {
	if len(windows) <= settleWindows {
		return seedResult{fitness: failedFitness}
	}

	var density, speed, escaped float64
	settled := windows[settleWindows:]
	for _, w := range settled {
		if math.IsNaN(w.MeanDensity) || math.IsNaN(w.SpeedMean) {
			return seedResult{fitness: failedFitness}
		}
		density += w.MeanDensity
		speed += w.SpeedMean
		if w.Steps > 0 && w.Particles > 0 {
			escaped += float64(w.Escaped()) / float64(w.Steps*w.Particles)
		}
	}
	n := float64(len(settled))
	density /= n
	speed /= n
	escaped /= n

	densityErr := (density - fe.targetDensity) / fe.targetDensity
	motion := speed / motionScale

	return seedResult{
		fitness: weightDensity*densityErr*densityErr +
			weightMotion*motion*motion +
			weightEscape*escaped,
		density: density,
	}
}

// copyConfig creates a deep copy of the base config set up for a block settle.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Obstacles = append([]config.ObstacleConfig(nil), fe.baseConfig.Obstacles...)
	cfg.Spawn.Layout = config.LayoutBlock
	return &cfg
}
