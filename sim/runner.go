// Package sim runs the fluid without graphics. A Runner owns the obstacle
// scene, the boundary field, the solver and the telemetry pipeline; the
// graphical game and the headless CLI both drive one.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/scene"
	"github.com/pthm-cable/fluid/sdf"
	"github.com/pthm-cable/fluid/systems"
	"github.com/pthm-cable/fluid/telemetry"
)

// Options configures a Runner beyond the loaded config.
type Options struct {
	Seed           int64
	LogStats       bool
	OutputDir      string
	StepsPerUpdate int // 0 = config value

	// StatsCallback receives every flushed telemetry window.
	StatsCallback func(telemetry.WindowStats)
}

// Runner advances the simulation in fixed steps.
type Runner struct {
	cfg  *config.Config
	rng  *rand.Rand
	seed int64

	scene  *scene.Scene
	grid   sdf.Grid
	field  sdf.Field
	solver *systems.Solver
	params systems.Params // Configured constants, restored by ResetParams

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)
	lastStats        telemetry.WindowStats

	tick           int32
	stepsPerUpdate int
}

// New builds the scene, boundary field and particle set described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runner, error) {
	r := &Runner{
		cfg:              cfg,
		rng:              rand.New(rand.NewSource(opts.Seed)),
		seed:             opts.Seed,
		scene:            scene.FromConfig(cfg),
		params:           systems.ParamsFromConfig(cfg),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
		stepsPerUpdate:   cfg.Physics.StepsPerUpdate,
	}
	if opts.StepsPerUpdate > 0 {
		r.stepsPerUpdate = opts.StepsPerUpdate
	}

	grid, err := GridFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	r.grid = grid

	start := time.Now()
	r.field, err = BuildField(ctx, cfg, grid, r.scene)
	if err != nil {
		return nil, err
	}
	slog.Info("boundary ready",
		"mode", cfg.Boundary.Mode,
		"obstacles", r.scene.Len(),
		"duration", time.Since(start),
	)

	r.solver, err = systems.NewSolver(r.params, r.field, r.spawnPositions())
	if err != nil {
		return nil, err
	}
	r.solver.OnStage = r.perfCollector.StartPhase

	r.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := r.outputManager.WriteConfig(cfg); err != nil {
		r.outputManager.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	slog.Info("simulation initialized",
		"seed", opts.Seed,
		"particles", len(r.solver.Particles()),
		"dt", cfg.Physics.DT,
		"steps_per_update", r.stepsPerUpdate,
	)
	return r, nil
}

// Step advances one tick and flushes telemetry when a window completes.
func (r *Runner) Step() error {
	r.perfCollector.StartTick()
	err := r.solver.Step(r.cfg.Physics.DT)
	r.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	if err != nil {
		r.perfCollector.EndTick()
		return fmt.Errorf("tick %d: %w", r.tick, err)
	}

	r.collector.RecordStep(r.solver.Stats())
	r.tick++
	r.flushTelemetry()
	r.perfCollector.EndTick()
	return nil
}

// Update runs StepsPerUpdate ticks.
func (r *Runner) Update() error {
	for i := 0; i < r.stepsPerUpdate; i++ {
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Run steps until maxTicks is reached or ctx is cancelled. maxTicks <= 0
// runs until cancellation.
func (r *Runner) Run(ctx context.Context, maxTicks int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Update(); err != nil {
			return err
		}
		if maxTicks > 0 && int(r.tick) >= maxTicks {
			slog.Info("max ticks reached", "tick", r.tick)
			return nil
		}
	}
}

// Respawn re-seeds the particles at the configured layout.
func (r *Runner) Respawn() {
	r.solver.Reset(r.spawnPositions())
}

// SetParams applies live-tuned constants.
func (r *Runner) SetParams(p systems.Params) error {
	return r.solver.SetParams(p)
}

// ResetParams restores the configured constants.
func (r *Runner) ResetParams() error {
	return r.solver.SetParams(r.params)
}

// SetEnvironment installs an extra per-particle force. Nil removes it.
func (r *Runner) SetEnvironment(f systems.ForceFunc) {
	r.solver.Env = f
}

// SetStepsPerUpdate changes how many ticks Update runs (minimum 1).
func (r *Runner) SetStepsPerUpdate(n int) {
	r.stepsPerUpdate = max(1, n)
}

// StepsPerUpdate returns how many ticks Update runs.
func (r *Runner) StepsPerUpdate() int {
	return r.stepsPerUpdate
}

// Tick returns the current simulation tick.
func (r *Runner) Tick() int32 {
	return r.tick
}

// SimTime returns simulated seconds elapsed.
func (r *Runner) SimTime() float64 {
	return float64(r.tick) * r.cfg.Physics.DT
}

// Seed returns the RNG seed.
func (r *Runner) Seed() int64 {
	return r.seed
}

// Config returns the loaded configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Scene returns the obstacle scene.
func (r *Runner) Scene() *scene.Scene {
	return r.scene
}

// Field returns the active boundary field.
func (r *Runner) Field() sdf.Field {
	return r.field
}

// Grid returns the sampling lattice of the boundary region.
func (r *Runner) Grid() sdf.Grid {
	return r.grid
}

// Solver returns the fluid solver.
func (r *Runner) Solver() *systems.Solver {
	return r.solver
}

// LastStats returns the most recently flushed telemetry window.
func (r *Runner) LastStats() telemetry.WindowStats {
	return r.lastStats
}

// PerfStats returns the rolling per-stage timing.
func (r *Runner) PerfStats() telemetry.PerfStats {
	return r.perfCollector.Stats()
}

// RecordFrame marks a rendered frame for FPS tracking.
func (r *Runner) RecordFrame() {
	r.perfCollector.RecordFrame()
}

// OutputDir returns the run output directory, empty when output is disabled.
func (r *Runner) OutputDir() string {
	return r.outputManager.Dir()
}

// Close flushes and closes run output.
func (r *Runner) Close() error {
	return r.outputManager.Close()
}

func boundsFromConfig(cfg *config.Config) sdf.Bounds {
	b := cfg.Boundary
	return sdf.Bounds{Left: b.Left, Right: b.Right, Down: b.Down, Up: b.Up}
}

// GridFromConfig returns the sample grid covering the configured boundary.
func GridFromConfig(cfg *config.Config) (sdf.Grid, error) {
	grid, err := sdf.NewGrid(boundsFromConfig(cfg), cfg.Boundary.SamplesPerUnit)
	if err != nil {
		return sdf.Grid{}, fmt.Errorf("boundary grid: %w", err)
	}
	return grid, nil
}
