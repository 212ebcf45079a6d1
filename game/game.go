// Package game is the interactive front end: it drives a sim.Runner and draws
// it with raylib.
package game

import (
	"context"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/renderer"
	"github.com/pthm-cable/fluid/sdf"
	"github.com/pthm-cable/fluid/sim"
	"github.com/pthm-cable/fluid/ui"
)

// Mouse push tuning
const (
	pushRadius   = 1.5  // World units
	pushStrength = 0.25 // Velocity added per step at the cursor
)

// Options configures a game instance.
type Options struct {
	sim.Options
}

// obstacleDrag tracks an obstacle being moved with the right mouse button.
type obstacleDrag struct {
	entity ecs.Entity
	offset r2.Vec // Cursor minus box min at grab time
	box    sdf.Box
}

// Game holds the complete interactive state.
type Game struct {
	ctx    context.Context
	runner *sim.Runner

	// Rendering
	camera           *camera.Camera
	particleRenderer *renderer.ParticleRenderer
	obstacleRenderer *renderer.ObstacleRenderer
	fieldRenderer    *renderer.FieldRenderer
	renderedField    sdf.Field

	// UI
	overlays      *ui.OverlayRegistry
	hud           *ui.HUD
	perfPanel     *ui.PerfPanel
	statsPanel    *ui.StatsPanel
	paramsPanel   *ui.ParamsPanel
	controlsPanel *ui.ControlsPanel
	inspector     *ui.Inspector

	// State
	paused       bool
	stepOnce     bool
	pushing      bool
	pushAt       r2.Vec
	drag         *obstacleDrag
	queryBuf     []int
	screenWidth  float32
	screenHeight float32
}

// NewGameWithOptions creates a game using the global config. The raylib
// window must already be open.
func NewGameWithOptions(ctx context.Context, opts Options) (*Game, error) {
	cfg := config.Cfg()

	runner, err := sim.New(ctx, cfg, opts.Options)
	if err != nil {
		return nil, err
	}

	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())

	g := &Game{
		ctx:              ctx,
		runner:           runner,
		camera:           newCamera(runner, w, h),
		particleRenderer: renderer.NewParticleRenderer(float32(cfg.Fluid.Radius/2), cfg.Fluid.MaxSpeed/4),
		obstacleRenderer: renderer.NewObstacleRenderer(),
		fieldRenderer:    renderer.NewFieldRenderer(2.0),
		overlays:         ui.NewOverlayRegistry(),
		hud:              ui.NewHUD(),
		perfPanel:        ui.NewPerfPanel(int32(w)-270, 10),
		statsPanel:       ui.NewStatsPanel(int32(w)-270, 10),
		paramsPanel:      ui.NewParamsPanel(10, 105, 260),
		controlsPanel:    ui.NewControlsPanel(280, 105, 200),
		inspector:        ui.NewInspector(int32(w)-270, int32(h)-260, 260),
		screenWidth:      w,
		screenHeight:     h,
	}

	slog.Info("game ready",
		"boundary", cfg.Boundary.Mode,
		"particles", len(runner.Solver().Particles()),
		"screen_width", w,
		"screen_height", h,
	)
	return g, nil
}

// newCamera frames the boundary region plus any obstacles outside it.
func newCamera(runner *sim.Runner, w, h float32) *camera.Camera {
	b := runner.Grid().Bounds
	world := sdf.Box{Min: r2.Vec{X: b.Left, Y: b.Down}, Max: r2.Vec{X: b.Right, Y: b.Up}}
	if extent, ok := runner.Scene().Extent(); ok && runner.Baked() {
		world = world.Union(extent)
	}
	return camera.New(w, h,
		float32(world.Min.X), float32(world.Min.Y),
		float32(world.Max.X), float32(world.Max.Y),
	)
}

// Update handles input and runs one update worth of simulation steps.
func (g *Game) Update() {
	g.handleInput()

	if g.paused && !g.stepOnce {
		return
	}

	var err error
	if g.stepOnce {
		err = g.runner.Step()
		g.stepOnce = false
	} else {
		err = g.runner.Update()
	}
	if err != nil {
		slog.Error("simulation step failed", "tick", g.runner.Tick(), "error", err)
		g.paused = true
	}
}

// Runner returns the underlying simulation.
func (g *Game) Runner() *sim.Runner {
	return g.runner
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.runner.Tick()
}

// Unload releases all resources.
func (g *Game) Unload() {
	if g.fieldRenderer != nil {
		g.fieldRenderer.Unload()
	}
	if err := g.runner.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
