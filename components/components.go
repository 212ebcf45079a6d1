// Package components defines ECS components for the scene.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Obstacle is a solid axis-aligned box the fluid collides with.
type Obstacle struct {
	Min, Max r2.Vec
}

// Box returns the obstacle as a box.
func (o Obstacle) Box() r2.Box {
	return r2.Box{Min: o.Min, Max: o.Max}
}

// Label names an entity for logs and overlays.
type Label struct {
	Name string
}
