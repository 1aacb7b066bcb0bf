// Package camera maps the simulation's origin-centred, y-up world onto the
// screen's y-down pixel grid.
package camera

// Camera controls the viewport into the simulation world.
// At zoom 1 the whole world fits the viewport with a small margin.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level relative to the fitted scale (1.0 = whole world visible)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World dimensions; the world spans [-W/2, W/2] x [-H/2, H/2]
	WorldW, WorldH float32

	// Fraction of the viewport left empty around the world at zoom 1
	Margin float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	fit float32 // pixels per world unit at zoom 1
}

// New creates a camera centered on the world origin at zoom 1.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		Margin:    0.05,
		MinZoom:   0.5,
		MaxZoom:   8.0,
	}
	c.refit()
	return c
}

// Scale returns pixels per world unit at the current zoom.
func (c *Camera) Scale() float32 { return c.fit * c.Zoom }

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

// WorldLength converts a world distance to pixels.
func (c *Camera) WorldLength(d float32) float32 { return d * c.Scale() }

// IsVisible returns true if a circle at (wx, wy) with given world radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return wx+radius >= minX && wx-radius <= maxX && wy+radius >= minY && wy-radius <= maxY
}

// Resize updates viewport dimensions and recomputes the fitted scale.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.refit()
}

// SetWorld changes the world dimensions, e.g. after a bounds change.
func (c *Camera) SetWorld(worldW, worldH float32) {
	c.WorldW = worldW
	c.WorldH = worldH
	c.refit()
	c.clampCenter()
}

// Pan moves the camera by the given delta in screen pixels. The center stays
// inside the world.
func (c *Camera) Pan(dx, dy float32) {
	s := c.Scale()
	c.X += dx / s
	c.Y -= dy / s
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the origin at zoom 1.
func (c *Camera) Reset() {
	c.X = 0
	c.Y = 0
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.Scale()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

func (c *Camera) refit() {
	if c.WorldW <= 0 || c.WorldH <= 0 {
		c.fit = 1
		return
	}
	c.fit = min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH) * (1 - c.Margin)
	if c.fit <= 0 {
		c.fit = 1
	}
}

func (c *Camera) clampCenter() {
	c.X = clamp(c.X, -c.WorldW/2, c.WorldW/2)
	c.Y = clamp(c.Y, -c.WorldH/2, c.WorldH/2)
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
