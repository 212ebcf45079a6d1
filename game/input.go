package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/systems"
	"github.com/pthm-cable/fluid/ui"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if g.paused && rl.IsKeyPressed(rl.KeyN) {
		g.stepOnce = true
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.runner.Respawn()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controlsPanel.Toggle()
	}

	// Steps-per-update control with < > keys (comma and period)
	steps := g.runner.StepsPerUpdate()
	if rl.IsKeyPressed(rl.KeyComma) && steps > 1 {
		g.runner.SetStepsPerUpdate(steps - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && steps < 10 {
		g.runner.SetStepsPerUpdate(steps + 1)
	}

	// Overlay toggles
	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		g.overlays.HandleKeyPress(key)
	}

	// Camera controls
	g.handleCameraInput()

	// Mouse interaction with the fluid and obstacles
	g.handleMouse()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(w, h)
	g.perfPanel.SetPosition(int32(w)-270, 10)
	g.statsPanel.SetPosition(int32(w)-270, 10)
	g.inspector.SetPosition(int32(w)-270, int32(h)-260)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Pan speed in screen pixels per frame
	panSpeed := float32(8.0)

	// Arrow key panning
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	// Zoom controls: mouse wheel or +/- keys
	wheelMove := rl.GetMouseWheelMove()
	if wheelMove != 0 {
		g.camera.ZoomBy(1.0 + wheelMove*0.1)
	}

	// Keyboard zoom with +/- (= and - keys)
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// handleMouse pushes fluid with the left button and drags obstacles with the
// right button.
func (g *Game) handleMouse() {
	mouse := rl.GetMousePosition()
	wx, wy := g.camera.ScreenToWorld(mouse.X, mouse.Y)
	cursor := r2.Vec{X: float64(wx), Y: float64(wy)}

	overUI := g.mouseOverUI(mouse)

	g.pushing = rl.IsMouseButtonDown(rl.MouseButtonLeft) && !overUI
	if g.pushing {
		g.pushAt = cursor
		g.runner.SetEnvironment(pushFrom(cursor))
	} else {
		g.runner.SetEnvironment(nil)
	}

	g.handleObstacleDrag(cursor, overUI)
}

// handleObstacleDrag moves an obstacle under the cursor. The field is
// rebaked once on release.
func (g *Game) handleObstacleDrag(cursor r2.Vec, overUI bool) {
	if !g.runner.Baked() {
		return
	}

	if g.drag == nil && rl.IsMouseButtonPressed(rl.MouseButtonRight) && !overUI {
		for _, o := range g.runner.Scene().Obstacles() {
			if o.Box.Contains(cursor) {
				g.drag = &obstacleDrag{entity: o.Entity, offset: cursor.Sub(o.Box.Min), box: o.Box}
				break
			}
		}
	}
	if g.drag == nil {
		return
	}

	size := g.drag.box.Size()
	g.drag.box.Min = cursor.Sub(g.drag.offset)
	g.drag.box.Max = g.drag.box.Min.Add(size)

	if rl.IsMouseButtonReleased(rl.MouseButtonRight) {
		if err := g.runner.MoveObstacle(g.ctx, g.drag.entity, g.drag.box); err != nil {
			slog.Error("failed to move obstacle", "error", err)
		}
		g.drag = nil
	}
}

// mouseOverUI reports whether the cursor is over an interactive panel.
func (g *Game) mouseOverUI(mouse rl.Vector2) bool {
	if g.overlays.IsEnabled(ui.OverlayParams) {
		rect := rl.Rectangle{X: 10, Y: 105, Width: 260, Height: float32(g.paramsPanel.Height())}
		if rl.CheckCollisionPointRec(mouse, rect) {
			return true
		}
	}
	if g.controlsPanel.IsVisible() && rl.CheckCollisionPointRec(mouse, g.controlsPanel.Bounds(g.overlays)) {
		return true
	}
	return false
}

// pushFrom returns a force pushing particles radially away from center,
// fading linearly to zero at pushRadius.
func pushFrom(center r2.Vec) systems.ForceFunc {
	return func(p *systems.Particle) r2.Vec {
		d := p.Pos.Sub(center)
		dist := r2.Norm(d)
		if dist >= pushRadius || dist < 1e-9 {
			return r2.Vec{}
		}
		return r2.Scale(pushStrength*(1-dist/pushRadius)/dist, d)
	}
}
