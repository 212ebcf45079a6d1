package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/telemetry"
	"github.com/pthm-cable/fluid/ui"
)

var (
	backgroundColor = rl.Color{R: 12, G: 16, B: 22, A: 255}
	pushColor       = rl.Color{R: 255, G: 255, B: 255, A: 60}
	dragColor       = rl.Color{R: 255, G: 200, B: 90, A: 160}
)

const controlsLegend = "SPACE: Pause | N: Step | R: Respawn | </>: Speed | LMB: Push | RMB: Drag obstacle | Arrows/Wheel: Camera | HOME: Reset | TAB: Overlays"

// Draw renders the game state.
func (g *Game) Draw() {
	g.runner.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	g.drawWorld()
	g.drawUI()

	rl.EndDrawing()
}

// drawWorld renders the boundary and fluid layers.
func (g *Game) drawWorld() {
	if g.overlays.IsEnabled(ui.OverlayFieldHeatmap) {
		// Resample only when the field changes (load, rebake)
		if field := g.runner.Field(); field != g.renderedField {
			g.fieldRenderer.Update(field, g.runner.Grid())
			g.renderedField = field
		}
		g.fieldRenderer.Draw(g.camera)
	}

	g.obstacleRenderer.DrawArena(g.camera, g.runner.Grid().Bounds)
	if g.overlays.IsEnabled(ui.OverlayObstacles) && g.runner.Baked() {
		g.obstacleRenderer.Draw(g.camera, g.runner.Scene().Boxes())
	}

	g.particleRenderer.Trails = g.overlays.IsEnabled(ui.OverlayTrails)
	g.particleRenderer.Draw(g.camera, g.runner.Solver().Particles())

	if g.pushing {
		x, y := g.camera.WorldToScreen(float32(g.pushAt.X), float32(g.pushAt.Y))
		rl.DrawCircleLines(int32(x), int32(y), pushRadius*g.camera.Scale(), pushColor)
	}
	if g.drag != nil {
		b := g.drag.box
		minX, maxY := g.camera.WorldToScreen(float32(b.Min.X), float32(b.Min.Y))
		maxX, minY := g.camera.WorldToScreen(float32(b.Max.X), float32(b.Max.Y))
		rl.DrawRectangleLinesEx(rl.Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, 2, dragColor)
	}
}

// drawUI renders the HUD and enabled panels.
func (g *Game) drawUI() {
	solver := g.runner.Solver()
	stats := solver.Stats()

	g.hud.Draw(ui.HUDData{
		Title:         "Viscoelastic Fluid",
		Particles:     len(solver.Particles()),
		Obstacles:     g.runner.Scene().Len(),
		Boundary:      g.runner.Config().Boundary.Mode,
		Tick:          g.runner.Tick(),
		SimTime:       g.runner.SimTime(),
		Speed:         g.runner.StepsPerUpdate(),
		FPS:           rl.GetFPS(),
		Paused:        g.paused,
		Collisions:    stats.Collisions,
		OutsideDomain: stats.OutsideDomain,
		Penetrating:   stats.Penetrating,
	})

	if g.overlays.IsEnabled(ui.OverlayParams) {
		g.drawParamsPanel()
	}

	switch {
	case g.overlays.IsEnabled(ui.OverlayPerf):
		perf := g.runner.PerfStats()
		g.perfPanel.Draw(ui.PerfPanelData{
			PhaseTimes: perf.PhaseAvg,
			Total:      perf.AvgTickDuration,
			TPS:        perf.TicksPerSecond,
		}, telemetry.Phases)
	case g.overlays.IsEnabled(ui.OverlayStats):
		g.statsPanel.Draw(g.runner.LastStats())
	}

	if g.overlays.IsEnabled(ui.OverlayInspector) {
		if i := g.findParticleAtMouse(); i >= 0 {
			g.inspector.Draw(g.inspect(i))
		}
	}

	if g.controlsPanel.IsVisible() {
		state := ui.ControlsState{
			Boundary:       g.runner.Config().Boundary.Mode,
			Baked:          g.runner.Baked(),
			Paused:         g.paused,
			StepsPerUpdate: g.runner.StepsPerUpdate(),
		}
		if id, ok := g.controlsPanel.Draw(g.overlays, state); ok {
			slog.Debug("overlay toggled", "overlay", id, "enabled", g.overlays.IsEnabled(id))
		}
	}

	g.hud.DrawControls(int32(g.screenWidth), int32(g.screenHeight), controlsLegend)
}

// drawParamsPanel renders the slider panel and applies edits.
func (g *Game) drawParamsPanel() {
	params := g.runner.Solver().Params()
	changed, action := g.paramsPanel.Draw(&params)

	switch action {
	case ui.ActionDefaults:
		if err := g.runner.ResetParams(); err != nil {
			slog.Error("failed to reset params", "error", err)
		}
		return
	case ui.ActionRespawn:
		g.runner.Respawn()
	}

	if changed {
		if err := g.runner.SetParams(params); err != nil {
			// Rejected values leave the previous params in place
			slog.Warn("params rejected", "error", err)
		}
	}
}
