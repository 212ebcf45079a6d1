// Package camera provides a 2D camera system for viewport control.
package camera

// fitMargin leaves a border around the world at zoom 1.
const fitMargin = 0.9

// Camera controls the viewport into the simulation world.
// World space is y-up in simulation units; screen space is y-down in pixels.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level relative to the fitted view (1.0 = whole world visible)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World bounds
	WorldMinX, WorldMinY float32
	WorldW, WorldH       float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	fit float32 // pixels per world unit at zoom 1
}

// New creates a camera centered on the world with the whole world in view.
func New(viewportW, viewportH, left, down, right, up float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldMinX: left,
		WorldMinY: down,
		WorldW:    right - left,
		WorldH:    up - down,
		MinZoom:   0.5,
		MaxZoom:   8.0,
	}
	c.fit = fitScale(viewportW, viewportH, c.WorldW, c.WorldH)
	c.Reset()
	return c
}

func fitScale(viewportW, viewportH, worldW, worldH float32) float32 {
	sx := viewportW / worldW
	sy := viewportH / worldH
	if sy < sx {
		sx = sy
	}
	return sx * fitMargin
}

// Scale returns pixels per world unit at the current zoom.
func (c *Camera) Scale() float32 {
	return c.fit * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	s := c.Scale()
	sx = c.ViewportW/2 + (wx-c.X)*s
	sy = c.ViewportH/2 - (wy-c.Y)*s
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	s := c.Scale()
	wx = c.X + (sx-c.ViewportW/2)/s
	wy = c.Y - (sy-c.ViewportH/2)/s
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	s := c.Scale()
	halfW := c.ViewportW/(2*s) + radius
	halfH := c.ViewportH/(2*s) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions and the fitted scale.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.fit = fitScale(viewportW, viewportH, c.WorldW, c.WorldH)
}

// Pan moves the camera by the given delta in screen pixels. The center stays
// inside the world bounds.
func (c *Camera) Pan(dx, dy float32) {
	s := c.Scale()
	c.X = clamp(c.X+dx/s, c.WorldMinX, c.WorldMinX+c.WorldW)
	c.Y = clamp(c.Y-dy/s, c.WorldMinY, c.WorldMinY+c.WorldH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.WorldMinX + c.WorldW/2
	c.Y = c.WorldMinY + c.WorldH/2
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.Scale()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
